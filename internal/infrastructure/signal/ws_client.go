package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// frame is the wire format exchanged with the signaling gateway. Outbound
// frames carry an action; inbound frames carry an event.
type frame struct {
	Action  string          `json:"action,omitempty"`
	Event   string          `json:"event,omitempty"`
	Channel string          `json:"channel,omitempty"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	WithMessage  bool              `json:"with_message,omitempty"`
	WithPresence bool              `json:"with_presence,omitempty"`
	MemberCount  int               `json:"member_count,omitempty"`
	State        string            `json:"state,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Transport dials the signaling gateway over WebSocket and exposes one
// logged-in connection per Login call.
type Transport struct {
	endpoint     string
	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
	logger       *zap.SugaredLogger
}

type Options struct {
	Endpoint     string
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

func NewTransport(opts Options, logger *zap.SugaredLogger) *Transport {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	return &Transport{
		endpoint:     opts.Endpoint,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		logger:       logger,
	}
}

// Login dials the gateway with the user's identity in the query string and
// starts the read/ping loops. The returned conn delivers inbound frames on
// its Events channel until closed.
func (t *Transport) Login(ctx context.Context, appID string, uid domain.UserID, token string) (ports.SignalingConn, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid signaling endpoint %q: %w", t.endpoint, err)
	}
	q := u.Query()
	q.Set("app_id", appID)
	q.Set("uid", string(uid))
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("signaling dial failed: %w", err)
	}

	c := &conn{
		ws:           ws,
		writeTimeout: t.writeTimeout,
		pingInterval: t.pingInterval,
		pongTimeout:  t.pongTimeout,
		events:       make(chan ports.TransportEvent, 64),
		done:         make(chan struct{}),
		logger:       t.logger,
	}
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
	logger       *zap.SugaredLogger

	writeMu sync.Mutex
	events  chan ports.TransportEvent

	mu          sync.RWMutex
	memberCount int

	closeOnce sync.Once
	done      chan struct{}
}

func (c *conn) Subscribe(ctx context.Context, channel string, opts ports.SubscribeOptions) error {
	return c.send(frame{
		Action:       "subscribe",
		Channel:      channel,
		WithMessage:  opts.WithMessage,
		WithPresence: opts.WithPresence,
	})
}

func (c *conn) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.send(frame{
		Action:  "publish",
		Channel: channel,
		Payload: payload,
	})
}

// MemberCount issues a presence query and returns the latest count the
// gateway has delivered. Presence events keep the cached value fresh; the
// query nudges the gateway for gateways that only push on change.
func (c *conn) MemberCount(ctx context.Context, channel string) (int, error) {
	select {
	case <-c.done:
		return 0, fmt.Errorf("signaling connection closed")
	default:
	}
	if err := c.send(frame{Action: "presence_query", Channel: channel}); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.memberCount, nil
}

func (c *conn) SetLocalAttributes(ctx context.Context, attrs map[string]string) error {
	return c.send(frame{Action: "announce", Attributes: attrs})
}

func (c *conn) Events() <-chan ports.TransportEvent {
	return c.events
}

func (c *conn) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"), deadline)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *conn) send(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("signaling write failed: %w", err)
	}
	return nil
}

func (c *conn) readLoop() {
	defer close(c.events)

	c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warnw("signaling read failed", "error", err)
				c.events <- ports.TransportEvent{
					Kind:  ports.EventConnection,
					State: ports.ConnectionDisconnected,
				}
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))

		switch f.Event {
		case "message":
			c.events <- ports.TransportEvent{
				Kind:    ports.EventMessage,
				From:    domain.UserID(f.From),
				Payload: f.Payload,
			}
		case "presence":
			c.mu.Lock()
			c.memberCount = f.MemberCount
			c.mu.Unlock()
			c.events <- ports.TransportEvent{
				Kind:        ports.EventPresence,
				MemberCount: f.MemberCount,
			}
		case "connection":
			c.events <- ports.TransportEvent{
				Kind:  ports.EventConnection,
				State: ports.ConnectionState(f.State),
			}
		default:
			c.logger.Debugw("ignoring unknown gateway event", "event", f.Event)
		}
	}
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			deadline := time.Now().Add(c.writeTimeout)
			err := c.ws.WriteControl(websocket.PingMessage, nil, deadline)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debugw("signaling ping failed", "error", err)
				return
			}
		}
	}
}
