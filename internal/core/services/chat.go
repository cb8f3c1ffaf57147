package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ChatIdentity describes the local sender.
type ChatIdentity struct {
	UserID    domain.UserID
	Username  string
	IsCreator bool
}

// ChatCoordinator merges persisted history with realtime messages and
// performs optimistic local echo on send. The message list is owned here and
// mutated only through this type's operations.
type ChatCoordinator struct {
	room    domain.RoomID
	local   ChatIdentity
	session *Session
	backend ports.BackendAPI
	limiter *rate.Limiter
	metrics ports.Metrics
	logger  *zap.SugaredLogger

	mu            sync.Mutex
	messages      []domain.ChatMessage
	historyLoaded bool
}

func NewChatCoordinator(room domain.RoomID, local ChatIdentity, session *Session, backend ports.BackendAPI, minSendInterval time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *ChatCoordinator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if minSendInterval <= 0 {
		minSendInterval = time.Second
	}
	c := &ChatCoordinator{
		room:    room,
		local:   local,
		session: session,
		backend: backend,
		limiter: rate.NewLimiter(rate.Every(minSendInterval), 1),
		metrics: metrics,
		logger:  logger,
	}
	session.OnMessage(c.handleSignaling)
	return c
}

// LoadHistory fetches persisted history once per room and prepends it.
// The identity shown per message is a presentation rule applied here, not in
// storage: the room's creator appears under their full name, everyone else
// under their handle.
func (c *ChatCoordinator) LoadHistory(ctx context.Context) error {
	c.mu.Lock()
	if c.historyLoaded {
		c.mu.Unlock()
		return domain.ErrHistoryAlreadyLoaded
	}
	c.historyLoaded = true
	c.mu.Unlock()

	entries, err := c.backend.ChatHistory(ctx, c.room)
	if err != nil {
		c.mu.Lock()
		c.historyLoaded = false
		c.mu.Unlock()
		return fmt.Errorf("failed to load chat history for %s: %w", c.room, err)
	}

	persisted := make([]domain.ChatMessage, 0, len(entries))
	for _, e := range entries {
		name := e.Username
		if e.IsCreator {
			name = e.FullName
		}
		persisted = append(persisted, domain.ChatMessage{
			ID:        e.ID,
			UserID:    domain.UserID(e.UserID),
			Username:  name,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			IsCreator: e.IsCreator,
			Origin:    domain.OriginPersisted,
		})
	}

	c.mu.Lock()
	c.messages = append(persisted, c.messages...)
	c.mu.Unlock()
	return nil
}

// Send publishes a chat line with optimistic local echo. The send is
// rejected before any network call when the previous send attempt was less
// than the minimum interval ago; this is a local double-submit guard, not a
// security control. On signaling or persistence failure the optimistic
// entry is rolled back and the error propagates for UI surfacing.
func (c *ChatCoordinator) Send(ctx context.Context, text string) error {
	if !c.limiter.Allow() {
		c.metrics.ChatRejected()
		return domain.ErrSendTooSoon
	}

	now := time.Now()
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    c.local.UserID,
		Username:  c.local.Username,
		Message:   text,
		Timestamp: now,
		IsCreator: c.local.IsCreator,
		Origin:    domain.OriginOptimistic,
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	event := domain.ChatEvent{
		UserID:    c.local.UserID,
		Username:  c.local.Username,
		Message:   text,
		Timestamp: now.UnixMilli(),
		IsCreator: c.local.IsCreator,
	}
	if err := c.session.SendMessage(ctx, event); err != nil {
		c.rollback(msg.ID)
		return fmt.Errorf("chat message was not delivered: %w", err)
	}

	if err := c.backend.PostChatMessage(ctx, c.room, msg); err != nil {
		c.rollback(msg.ID)
		return fmt.Errorf("chat message was not persisted: %w", err)
	}

	c.confirm(msg.ID)
	c.metrics.ChatSent()
	return nil
}

// handleSignaling appends realtime messages from other senders. A message
// whose sender is the local identity is the speaker's own echo; the
// optimistic copy already represents it.
func (c *ChatCoordinator) handleSignaling(msg domain.SignalingMessage, from domain.UserID) {
	event, ok := msg.(domain.ChatEvent)
	if !ok {
		return
	}
	if event.UserID == c.local.UserID {
		return
	}

	c.mu.Lock()
	c.messages = append(c.messages, domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    event.UserID,
		Username:  event.Username,
		Message:   event.Message,
		Timestamp: time.UnixMilli(event.Timestamp),
		IsCreator: event.IsCreator,
		Origin:    domain.OriginRealtime,
	})
	c.mu.Unlock()
}

// Messages returns a copy sorted by client timestamp (display order only).
func (c *ChatCoordinator) Messages() []domain.ChatMessage {
	c.mu.Lock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (c *ChatCoordinator) rollback(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

func (c *ChatCoordinator) confirm(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if m.ID == id {
			c.messages[i].Origin = domain.OriginRealtime
			return
		}
	}
}
