package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
	"liveclass/pkg/retry"

	"go.uber.org/zap/zaptest"
)

// fakeConn is an in-memory signaling connection. Tests drive inbound events
// through Deliver* and inspect outbound publishes through Published.
type fakeConn struct {
	mu          sync.Mutex
	published   [][]byte
	publishErr  error
	attrs       map[string]string
	memberCount int
	closed      bool

	events chan ports.TransportEvent
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan ports.TransportEvent, 64)}
}

func (c *fakeConn) Subscribe(ctx context.Context, channel string, opts ports.SubscribeOptions) error {
	return nil
}

func (c *fakeConn) Publish(ctx context.Context, channel string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, payload)
	return nil
}

func (c *fakeConn) MemberCount(ctx context.Context, channel string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memberCount, nil
}

func (c *fakeConn) SetLocalAttributes(ctx context.Context, attrs map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs = attrs
	return nil
}

func (c *fakeConn) Events() <-chan ports.TransportEvent { return c.events }

func (c *fakeConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *fakeConn) SetPublishErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishErr = err
}

func (c *fakeConn) Published() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.published))
	copy(out, c.published)
	return out
}

func (c *fakeConn) DeliverMessage(t *testing.T, from domain.UserID, msg domain.SignalingMessage) {
	t.Helper()
	payload, err := domain.EncodeSignalingMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	c.events <- ports.TransportEvent{Kind: ports.EventMessage, From: from, Payload: payload}
}

func (c *fakeConn) DeliverPresence(count int) {
	c.mu.Lock()
	c.memberCount = count
	c.mu.Unlock()
	c.events <- ports.TransportEvent{Kind: ports.EventPresence, MemberCount: count}
}

// fakeTransport hands out fakeConns and optionally fails the first N logins.
type fakeTransport struct {
	mu         sync.Mutex
	conn       *fakeConn
	logins     int
	failLogins int
}

func (t *fakeTransport) Login(ctx context.Context, appID string, uid domain.UserID, token string) (ports.SignalingConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logins++
	if t.logins <= t.failLogins {
		return nil, errors.New("login refused")
	}
	if t.conn == nil {
		t.conn = newFakeConn()
	}
	return t.conn, nil
}

func (t *fakeTransport) Logins() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logins
}

func fastBackoff() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}
}

// newReadySession builds a logged-in session over a fake transport.
func newReadySession(t *testing.T, room domain.RoomID, uid domain.UserID) (*Session, *fakeConn) {
	t.Helper()
	transport := &fakeTransport{conn: newFakeConn()}
	sess := newSession(room, transport, fastBackoff(), ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())
	err := sess.login(context.Background(), Credential{
		AppID:       "test-app",
		UserID:      uid,
		DisplayName: "Tester",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	t.Cleanup(func() { _ = sess.close(context.Background()) })
	return sess, transport.conn
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
