package services

import (
	"context"
	"sync"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
	"liveclass/pkg/retry"

	"go.uber.org/zap"
)

// SessionRegistry hands out one shared Session per room. Several independent
// UI consumers each want a session for the same room; construction is
// idempotent per room id:
//
//   - a second Acquire while a login is in flight joins that login's outcome
//     instead of starting a second login;
//   - a second Acquire on a Ready session reuses the instance and merely
//     re-announces the local presence attributes.
//
// Ownership is reference counted; the last Release logs the session out.
type SessionRegistry struct {
	transport    ports.SignalingTransport
	metrics      ports.Metrics
	logger       *zap.SugaredLogger
	loginBackoff retry.Config

	mu      sync.Mutex
	entries map[domain.RoomID]*registryEntry
}

type registryEntry struct {
	session *Session
	refs    int
}

func NewSessionRegistry(transport ports.SignalingTransport, metrics ports.Metrics, logger *zap.SugaredLogger) *SessionRegistry {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &SessionRegistry{
		transport: transport,
		metrics:   metrics,
		logger:    logger,
		entries:   make(map[domain.RoomID]*registryEntry),
	}
}

// Acquire returns the room's shared session, logging in if this is the first
// reference. On login failure the reference is dropped and the error is
// returned to every waiting caller; a later Acquire starts a fresh login.
func (r *SessionRegistry) Acquire(ctx context.Context, room domain.RoomID, cred Credential) (*Session, error) {
	r.mu.Lock()
	entry, ok := r.entries[room]
	if ok {
		entry.refs++
		sess := entry.session
		r.mu.Unlock()

		if err := sess.awaitLogin(ctx); err != nil {
			r.Release(ctx, room)
			return nil, err
		}
		// Already Ready: re-announce local presence for this consumer.
		if err := sess.Announce(ctx, cred.DisplayName, cred.AvatarRef); err != nil {
			r.logger.Warnw("presence re-announce failed", "room", room, "error", err)
		}
		return sess, nil
	}

	sess := newSession(room, r.transport, r.loginBackoff, r.metrics, r.logger)
	r.entries[room] = &registryEntry{session: sess, refs: 1}
	r.mu.Unlock()

	if err := sess.login(ctx, cred); err != nil {
		r.logger.Errorw("signaling login exhausted", "room", room, "error", err)
		r.Release(ctx, room)
		return nil, err
	}

	r.metrics.SessionOpened(room)
	r.logger.Infow("signaling session ready", "room", room, "uid", cred.UserID)
	return sess, nil
}

// Release drops one reference; the last reference logs the session out and
// removes it from the registry.
func (r *SessionRegistry) Release(ctx context.Context, room domain.RoomID) {
	r.mu.Lock()
	entry, ok := r.entries[room]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.entries, room)
	r.mu.Unlock()

	if err := entry.session.close(ctx); err != nil {
		r.logger.Warnw("session logout failed", "room", room, "error", err)
	}
	r.metrics.SessionClosed(room)
	r.logger.Infow("signaling session released", "room", room)
}

// SetLoginBackoff overrides the login retry schedule for sessions created
// after the call.
func (r *SessionRegistry) SetLoginBackoff(cfg retry.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginBackoff = cfg
}

// Refs reports the current reference count for a room (0 when absent).
func (r *SessionRegistry) Refs(room domain.RoomID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[room]; ok {
		return entry.refs
	}
	return 0
}
