package domain

import "time"

// ChatOrigin records how a message entered the local list.
type ChatOrigin string

const (
	OriginPersisted  ChatOrigin = "persisted"
	OriginRealtime   ChatOrigin = "realtime"
	OriginOptimistic ChatOrigin = "optimistic"
)

// ChatMessage is one entry of the merged chat list. An optimistic entry is
// confirmed in place or rolled back when its persistence call fails; the
// sender's own realtime echo never produces a second entry.
type ChatMessage struct {
	ID        string
	UserID    UserID
	Username  string
	Message   string
	Timestamp time.Time
	IsCreator bool
	Origin    ChatOrigin
}
