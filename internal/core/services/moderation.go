package services

import (
	"context"
	"sync"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
	cerrors "liveclass/pkg/errors"

	"go.uber.org/zap"
)

// ModerationProtocol encodes and sends mute/kick commands over the shared
// session and owns the local kicked-user set. The set is mutated only
// through RemoveUser and HandleMessage; no other component reaches into it.
//
// Mute commands fail loudly (the operator can re-click); kick publish
// failures are swallowed because the local kicked-set is the safety net.
type ModerationProtocol struct {
	session *Session
	tracker *MediaStateTracker
	metrics ports.Metrics
	logger  *zap.SugaredLogger

	// onKickedLocal fires when a KICK_USER addressed to the local user
	// arrives; the UI tears the room down.
	onKickedLocal func()
	// onLocalMute fires when a MUTE_USER addressed to the local user
	// arrives; the UI applies the requested state to the local devices.
	onLocalMute func(media domain.MediaType, mute bool)

	mu     sync.RWMutex
	kicked map[domain.UserID]struct{}
}

// ModerationCallbacks are the UI hooks for commands addressed to the local user.
type ModerationCallbacks struct {
	OnKickedLocal func()
	OnLocalMute   func(media domain.MediaType, mute bool)
}

func NewModerationProtocol(session *Session, tracker *MediaStateTracker, cb ModerationCallbacks, metrics ports.Metrics, logger *zap.SugaredLogger) *ModerationProtocol {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	m := &ModerationProtocol{
		session:       session,
		tracker:       tracker,
		metrics:       metrics,
		logger:        logger,
		onKickedLocal: cb.OnKickedLocal,
		onLocalMute:   cb.OnLocalMute,
		kicked:        make(map[domain.UserID]struct{}),
	}
	session.OnMessage(m.HandleMessage)
	return m
}

// ToggleRemoteMic flips the target's mic: current state on means the command
// mutes, off means it unmutes. Unknown state assumes on. No retry; the
// command is operator-interactive and re-clickable.
func (m *ModerationProtocol) ToggleRemoteMic(ctx context.Context, target domain.UserID) error {
	return m.toggleRemote(ctx, target, domain.MediaAudio)
}

// ToggleRemoteCamera flips the target's camera the same way.
func (m *ModerationProtocol) ToggleRemoteCamera(ctx context.Context, target domain.UserID) error {
	return m.toggleRemote(ctx, target, domain.MediaVideo)
}

func (m *ModerationProtocol) toggleRemote(ctx context.Context, target domain.UserID, media domain.MediaType) error {
	if !m.session.Ready() {
		return cerrors.Wrap(domain.ErrSessionNotReady, cerrors.ClassOperatorVisible,
			"moderation.toggle", "no live signaling session")
	}

	// Unknown state defaults to "on", so the first command mutes.
	current := true
	if state, ok := m.tracker.State(target); ok {
		switch media {
		case domain.MediaAudio:
			current = state.MicOn
		case domain.MediaVideo:
			current = state.CameraOn
		}
	}

	msg := domain.MuteUser{UserID: target, Media: media, Mute: current}
	if err := m.session.SendMessage(ctx, msg); err != nil {
		return cerrors.Wrap(err, cerrors.ClassOperatorVisible,
			"moderation.toggle", "mute command was not delivered")
	}
	m.metrics.ModerationCommand("mute")
	return nil
}

// RemoveUser best-effort publishes the kick and unconditionally adds the
// target to the local kicked-set, so the operator's own view is correct even
// under signaling outage. The remote party is removed only if the message
// was delivered.
func (m *ModerationProtocol) RemoveUser(ctx context.Context, target domain.UserID) {
	if err := m.session.SendMessage(ctx, domain.KickUser{UserID: target}); err != nil {
		m.logger.Warnw("kick publish failed, local removal still applies",
			"room", m.session.Room(), "target", target, "error", err)
	}

	m.mu.Lock()
	m.kicked[target] = struct{}{}
	m.mu.Unlock()
	m.metrics.ModerationCommand("kick")
}

// HandleMessage applies inbound moderation commands. Commands not addressed
// to the local user only update the kicked-set.
func (m *ModerationProtocol) HandleMessage(msg domain.SignalingMessage, from domain.UserID) {
	switch cmd := msg.(type) {
	case domain.KickUser:
		m.mu.Lock()
		m.kicked[cmd.UserID] = struct{}{}
		m.mu.Unlock()
		if cmd.UserID == m.session.LocalID() && m.onKickedLocal != nil {
			m.onKickedLocal()
		}
	case domain.MuteUser:
		// Only relevant to this client's own devices when it is the target.
		if cmd.UserID == m.session.LocalID() && m.onLocalMute != nil {
			m.onLocalMute(cmd.Media, cmd.Mute)
		}
	}
}

// IsKicked reports whether the uid is in the local kicked-set.
func (m *ModerationProtocol) IsKicked(uid domain.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.kicked[uid]
	return ok
}

// KickedSet returns a copy of the kicked-set for roster filtering.
func (m *ModerationProtocol) KickedSet() map[domain.UserID]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.UserID]struct{}, len(m.kicked))
	for uid := range m.kicked {
		out[uid] = struct{}{}
	}
	return out
}
