package domain

import "time"

// ViewerCountSnapshot is a read-through projection of channel presence.
// LiveCount is derived, never persisted per-value; only the aggregate is
// flushed to the backend on an interval, always as a full snapshot.
type ViewerCountSnapshot struct {
	LiveCount    int
	LastSyncedAt time.Time
}
