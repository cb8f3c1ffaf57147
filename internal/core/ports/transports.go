package ports

import (
	"context"

	"liveclass/internal/core/domain"
)

// ConnectionState mirrors the signaling transport's connection lifecycle.
type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// EventKind discriminates inbound transport events.
type EventKind int

const (
	EventMessage EventKind = iota
	EventPresence
	EventConnection
)

// TransportEvent is one inbound event from the signaling substrate.
// Payload is set for EventMessage, MemberCount for EventPresence and
// State for EventConnection.
type TransportEvent struct {
	Kind        EventKind
	From        domain.UserID
	Payload     []byte
	MemberCount int
	State       ConnectionState
}

// SubscribeOptions selects per-channel transport features.
type SubscribeOptions struct {
	WithMessage  bool
	WithPresence bool
}

// SignalingConn is one logged-in connection to the pub/sub substrate.
// Delivery is at-most-once and per-publisher ordered; nothing more.
type SignalingConn interface {
	Subscribe(ctx context.Context, channel string, opts SubscribeOptions) error
	Publish(ctx context.Context, channel string, payload []byte) error
	// MemberCount reports the channel's presence roster size.
	MemberCount(ctx context.Context, channel string) (int, error)
	// SetLocalAttributes announces the local display name/avatar over presence.
	SetLocalAttributes(ctx context.Context, attrs map[string]string) error
	Events() <-chan TransportEvent
	Close(ctx context.Context) error
}

// SignalingTransport logs a user into the signaling substrate.
type SignalingTransport interface {
	Login(ctx context.Context, appID string, uid domain.UserID, token string) (SignalingConn, error)
}

// MediaTransport is the audio/video substrate boundary. Only its subscribe
// call and per-user flags are consumed here; frame routing is out of scope.
type MediaTransport interface {
	// Subscribe makes the given user's media lane actually flow to this client.
	Subscribe(ctx context.Context, uid domain.UserID, media domain.MediaType) error
	// RemoteMediaState returns the transport's own per-user flags, used as a
	// fallback before the event-derived state has an entry for the user.
	RemoteMediaState(uid domain.UserID) (domain.MediaState, bool)
}
