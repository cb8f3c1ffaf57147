package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
	"liveclass/pkg/retry"

	"go.uber.org/zap"
)

// Login retries back off at 1s, 2s, 4s before giving up.
const defaultLoginBackoff = 1 * time.Second

// MessageHandler receives decoded room messages together with the sender id.
type MessageHandler func(msg domain.SignalingMessage, from domain.UserID)

// PresenceHandler receives the channel member count after a presence event.
type PresenceHandler func(memberCount int)

// ConnectionHandler receives transport connection-state changes.
type ConnectionHandler func(state ports.ConnectionState)

// Credential carries everything needed to log a user into a room channel.
type Credential struct {
	AppID       string
	Token       string
	UserID      domain.UserID
	DisplayName string
	AvatarRef   string
}

// Session owns one logical connection to the room's pub/sub channel. It is
// shared by reference across every consumer in a tab (chat, moderation,
// viewer count); the registry guarantees one login per room.
//
// Event handlers are multi-subscriber: registration returns an unsubscribe
// func and handlers never clobber each other.
type Session struct {
	room      domain.RoomID
	transport ports.SignalingTransport
	logger    *zap.SugaredLogger
	metrics   ports.Metrics

	loginBackoff retry.Config

	mu        sync.RWMutex
	conn      ports.SignalingConn
	localID   domain.UserID
	ready     bool
	released  bool
	loginErr  error
	loginDone chan struct{}

	nextSubID    int
	msgSubs      map[int]MessageHandler
	presenceSubs map[int]PresenceHandler
	connSubs     map[int]ConnectionHandler

	dispatchDone chan struct{}
}

func newSession(room domain.RoomID, transport ports.SignalingTransport, backoff retry.Config, metrics ports.Metrics, logger *zap.SugaredLogger) *Session {
	if backoff.MaxAttempts == 0 && backoff.InitialDelay == 0 {
		backoff = retry.Config{
			MaxAttempts:  3,
			InitialDelay: defaultLoginBackoff,
			Multiplier:   2.0,
		}
	}
	s := &Session{
		room:         room,
		transport:    transport,
		logger:       logger,
		metrics:      metrics,
		loginDone:    make(chan struct{}),
		msgSubs:      make(map[int]MessageHandler),
		presenceSubs: make(map[int]PresenceHandler),
		connSubs:     make(map[int]ConnectionHandler),
		dispatchDone: make(chan struct{}),
	}
	backoff.OnRetry = func(attempt int, err error) {
		metrics.LoginRetry()
		logger.Warnw("signaling login failed, retrying",
			"room", room, "attempt", attempt, "error", err)
	}
	s.loginBackoff = backoff
	return s
}

// login performs the login+subscribe sequence with bounded exponential
// backoff. After exhausting retries the session stays unusable until a fresh
// login is issued through the registry.
func (s *Session) login(ctx context.Context, cred Credential) error {
	err := retry.Do(ctx, s.loginBackoff, func() error {
		conn, lerr := s.transport.Login(ctx, cred.AppID, cred.UserID, cred.Token)
		if lerr != nil {
			return fmt.Errorf("login: %w", lerr)
		}
		if serr := conn.Subscribe(ctx, string(s.room), ports.SubscribeOptions{
			WithMessage:  true,
			WithPresence: true,
		}); serr != nil {
			_ = conn.Close(ctx)
			return fmt.Errorf("subscribe %s: %w", s.room, serr)
		}
		s.mu.Lock()
		s.conn = conn
		s.localID = cred.UserID
		s.mu.Unlock()
		return nil
	})

	s.mu.Lock()
	if err != nil {
		s.loginErr = fmt.Errorf("%w: %v", domain.ErrLoginExhausted, err)
		s.mu.Unlock()
		close(s.loginDone)
		return s.loginErr
	}
	s.ready = true
	s.mu.Unlock()
	close(s.loginDone)

	go s.dispatch()

	if aerr := s.Announce(ctx, cred.DisplayName, cred.AvatarRef); aerr != nil {
		s.logger.Warnw("presence announce failed", "room", s.room, "error", aerr)
	}
	return nil
}

// awaitLogin joins an in-flight login's outcome.
func (s *Session) awaitLogin(ctx context.Context) error {
	select {
	case <-s.loginDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loginErr
}

// Ready reports whether the session is logged in and subscribed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && !s.released
}

// Room returns the room this session is bound to.
func (s *Session) Room() domain.RoomID { return s.room }

// LocalID returns the identity the session logged in with.
func (s *Session) LocalID() domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localID
}

// SendMessage publishes a signaling message to the whole room. Publish is
// fire-and-forget at the protocol level, but an error here means the remote
// state was not updated and the caller must retry or inform the user.
func (s *Session) SendMessage(ctx context.Context, msg domain.SignalingMessage) error {
	s.mu.RLock()
	conn, ready, released := s.conn, s.ready, s.released
	s.mu.RUnlock()
	if released {
		return domain.ErrSessionReleased
	}
	if !ready {
		return domain.ErrSessionNotReady
	}

	payload, err := domain.EncodeSignalingMessage(msg)
	if err != nil {
		return err
	}
	if err := conn.Publish(ctx, string(s.room), payload); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.MessageType(), s.room, err)
	}
	return nil
}

// Announce re-publishes the local display name/avatar over presence.
func (s *Session) Announce(ctx context.Context, displayName, avatarRef string) error {
	s.mu.RLock()
	conn, ready, released := s.conn, s.ready, s.released
	s.mu.RUnlock()
	if released {
		return domain.ErrSessionReleased
	}
	if !ready {
		return domain.ErrSessionNotReady
	}
	return conn.SetLocalAttributes(ctx, map[string]string{
		"display_name": displayName,
		"avatar_ref":   avatarRef,
	})
}

// MemberCount queries the channel's presence roster size.
func (s *Session) MemberCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	conn, ready, released := s.conn, s.ready, s.released
	s.mu.RUnlock()
	if released {
		return 0, domain.ErrSessionReleased
	}
	if !ready {
		return 0, domain.ErrSessionNotReady
	}
	return conn.MemberCount(ctx, string(s.room))
}

// OnMessage registers a message handler and returns its unsubscribe func.
func (s *Session) OnMessage(h MessageHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.msgSubs[id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.msgSubs, id)
	}
}

// OnPresenceChange registers a presence handler and returns its unsubscribe func.
func (s *Session) OnPresenceChange(h PresenceHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.presenceSubs[id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.presenceSubs, id)
	}
}

// OnConnectionChange registers a connection-state handler and returns its
// unsubscribe func.
func (s *Session) OnConnectionChange(h ConnectionHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.connSubs[id] = h
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.connSubs, id)
	}
}

// dispatch fans inbound transport events out to all registered handlers.
// Unknown message tags are rejected at this boundary.
func (s *Session) dispatch() {
	defer close(s.dispatchDone)

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	for ev := range conn.Events() {
		switch ev.Kind {
		case ports.EventMessage:
			msg, err := domain.DecodeSignalingMessage(ev.Payload)
			if err != nil {
				s.logger.Warnw("rejecting inbound signaling payload",
					"room", s.room, "from", ev.From, "error", err)
				continue
			}
			for _, h := range s.messageHandlers() {
				h(msg, ev.From)
			}
		case ports.EventPresence:
			for _, h := range s.presenceHandlers() {
				h(ev.MemberCount)
			}
		case ports.EventConnection:
			for _, h := range s.connectionHandlers() {
				h(ev.State)
			}
		}
	}
}

func (s *Session) messageHandlers() []MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs := make([]MessageHandler, 0, len(s.msgSubs))
	for _, h := range s.msgSubs {
		hs = append(hs, h)
	}
	return hs
}

func (s *Session) presenceHandlers() []PresenceHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs := make([]PresenceHandler, 0, len(s.presenceSubs))
	for _, h := range s.presenceSubs {
		hs = append(hs, h)
	}
	return hs
}

func (s *Session) connectionHandlers() []ConnectionHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs := make([]ConnectionHandler, 0, len(s.connSubs))
	for _, h := range s.connSubs {
		hs = append(hs, h)
	}
	return hs
}

// close logs the session out. Called by the registry when the last reference
// is released.
func (s *Session) close(ctx context.Context) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	conn, wasReady := s.conn, s.ready
	s.ready = false
	s.mu.Unlock()

	if !wasReady || conn == nil {
		return nil
	}
	if err := conn.Close(ctx); err != nil {
		return fmt.Errorf("logout %s: %w", s.room, err)
	}
	return nil
}
