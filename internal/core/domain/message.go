package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType tags the closed set of signaling payloads.
type MessageType string

const (
	TypeMuteUser    MessageType = "MUTE_USER"
	TypeKickUser    MessageType = "KICK_USER"
	TypeChatMessage MessageType = "CHAT_MESSAGE"
)

// SignalingMessage is the closed union of room-addressed control payloads.
// The transport has no point-to-point primitive, so every message reaches
// every member and handlers filter by target themselves.
type SignalingMessage interface {
	MessageType() MessageType
}

// MuteUser asks the addressed user to mute or unmute one media lane.
type MuteUser struct {
	UserID UserID    `json:"user_id"`
	Media  MediaType `json:"media_type"`
	Mute   bool      `json:"mute"`
}

func (MuteUser) MessageType() MessageType { return TypeMuteUser }

// KickUser asks the addressed user to leave the room.
type KickUser struct {
	UserID UserID `json:"user_id"`
}

func (KickUser) MessageType() MessageType { return TypeKickUser }

// ChatEvent carries one chat line. Timestamp is client-supplied epoch
// milliseconds, used for display sort only.
type ChatEvent struct {
	UserID    UserID `json:"user_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	IsCreator bool   `json:"is_creator"`
}

func (ChatEvent) MessageType() MessageType { return TypeChatMessage }

type messageEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeSignalingMessage serializes a message into the wire envelope.
func EncodeSignalingMessage(msg SignalingMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msg.MessageType(), err)
	}
	return json.Marshal(messageEnvelope{Type: msg.MessageType(), Payload: payload})
}

// DecodeSignalingMessage parses a wire envelope. Unknown tags are rejected
// rather than silently ignored.
func DecodeSignalingMessage(data []byte) (SignalingMessage, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signaling envelope: %w", err)
	}

	switch env.Type {
	case TypeMuteUser:
		var msg MuteUser
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return msg, nil
	case TypeKickUser:
		var msg KickUser
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return msg, nil
	case TypeChatMessage:
		var msg ChatEvent
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}
