package services

import (
	"context"
	"sync"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"go.uber.org/zap"
)

// MediaStateTracker reduces the media transport's publish/unpublish/leave
// event stream into a per-user camera/mic map. The transport does not
// deliver a consistent initial snapshot across client versions, so the event
// stream is the only reliable source.
type MediaStateTracker struct {
	media  ports.MediaTransport
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	states map[domain.UserID]domain.MediaState
}

func NewMediaStateTracker(media ports.MediaTransport, logger *zap.SugaredLogger) *MediaStateTracker {
	return &MediaStateTracker{
		media:  media,
		logger: logger,
		states: make(map[domain.UserID]domain.MediaState),
	}
}

// HandlePublished subscribes to the lane so data actually flows, then marks
// it on. The other lane keeps its last-known value.
func (t *MediaStateTracker) HandlePublished(ctx context.Context, uid domain.UserID, media domain.MediaType) {
	if err := t.media.Subscribe(ctx, uid, media); err != nil {
		t.logger.Warnw("media subscribe failed", "uid", uid, "media", media, "error", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.states[uid]
	switch media {
	case domain.MediaVideo:
		state.CameraOn = true
	case domain.MediaAudio:
		state.MicOn = true
	}
	t.states[uid] = state
}

// HandleUnpublished marks the lane off, preserving the other lane.
func (t *MediaStateTracker) HandleUnpublished(uid domain.UserID, media domain.MediaType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[uid]
	if !ok {
		return
	}
	switch media {
	case domain.MediaVideo:
		state.CameraOn = false
	case domain.MediaAudio:
		state.MicOn = false
	}
	t.states[uid] = state
}

// HandleLeft deletes the user's entry entirely; no frozen last state may
// linger in the roster.
func (t *MediaStateTracker) HandleLeft(uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, uid)
}

// State returns the last-known state for a user.
func (t *MediaStateTracker) State(uid domain.UserID) (domain.MediaState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.states[uid]
	return state, ok
}

// States returns a copy of the full map.
func (t *MediaStateTracker) States() map[domain.UserID]domain.MediaState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[domain.UserID]domain.MediaState, len(t.states))
	for uid, state := range t.states {
		out[uid] = state
	}
	return out
}
