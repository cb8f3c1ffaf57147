package services

import (
	"context"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"go.uber.org/zap"
)

// ViewerCountSync derives a live count from channel presence and, on the
// host side only, periodically flushes it to persistent storage. The
// persisted value is always a full snapshot, never a delta, so out-of-order
// flushes are harmless.
type ViewerCountSync struct {
	room     domain.RoomID
	isHost   bool
	session  *Session
	presence ports.PresenceStore
	backend  ports.BackendAPI
	metrics  ports.Metrics
	logger   *zap.SugaredLogger

	pollInterval  time.Duration
	flushInterval time.Duration

	mu       sync.RWMutex
	snapshot domain.ViewerCountSnapshot

	unsubscribe func()
}

func NewViewerCountSync(room domain.RoomID, isHost bool, session *Session, presence ports.PresenceStore, backend ports.BackendAPI, pollInterval, flushInterval time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *ViewerCountSync {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if flushInterval <= 0 {
		flushInterval = 60 * time.Second
	}
	return &ViewerCountSync{
		room:          room,
		isHost:        isHost,
		session:       session,
		presence:      presence,
		backend:       backend,
		metrics:       metrics,
		logger:        logger,
		pollInterval:  pollInterval,
		flushInterval: flushInterval,
	}
}

// Start recomputes the count on every presence callback and on a fixed poll
// as a fallback against missed events. It returns after registering; the
// loop runs until ctx is cancelled.
func (v *ViewerCountSync) Start(ctx context.Context) {
	v.unsubscribe = v.session.OnPresenceChange(func(count int) {
		v.setCount(count)
	})
	go v.run(ctx)
}

func (v *ViewerCountSync) run(ctx context.Context) {
	poll := time.NewTicker(v.pollInterval)
	defer poll.Stop()

	var flush <-chan time.Time
	if v.isHost {
		ticker := time.NewTicker(v.flushInterval)
		defer ticker.Stop()
		flush = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if v.unsubscribe != nil {
				v.unsubscribe()
			}
			return
		case <-poll.C:
			v.poll(ctx)
		case <-flush:
			v.flush(ctx)
		}
	}
}

// poll recomputes the count from the transport's presence query, falling
// back to the server-assisted presence store when the transport cannot
// answer.
func (v *ViewerCountSync) poll(ctx context.Context) {
	count, err := v.session.MemberCount(ctx)
	if err != nil && v.presence != nil {
		count, err = v.presence.MemberCount(ctx, v.room)
	}
	if err != nil {
		v.logger.Debugw("presence poll failed", "room", v.room, "error", err)
		return
	}
	v.setCount(count)
}

// flush persists the current snapshot. A failed flush is logged and retried
// on the next interval tick, never immediately; it must not block or disturb
// the realtime path.
func (v *ViewerCountSync) flush(ctx context.Context) {
	v.mu.RLock()
	count := v.snapshot.LiveCount
	v.mu.RUnlock()

	if err := v.backend.UpdateViewerCount(ctx, v.room, count); err != nil {
		v.logger.Warnw("viewer count sync failed, will retry next tick",
			"room", v.room, "count", count, "error", err)
		return
	}

	v.mu.Lock()
	v.snapshot.LastSyncedAt = time.Now()
	v.mu.Unlock()
}

func (v *ViewerCountSync) setCount(count int) {
	v.mu.Lock()
	v.snapshot.LiveCount = count
	v.mu.Unlock()
	v.metrics.ViewerCount(v.room, count)
}

// Snapshot returns the current projection.
func (v *ViewerCountSync) Snapshot() domain.ViewerCountSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot
}
