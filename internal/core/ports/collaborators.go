package ports

import (
	"context"
	"time"

	"liveclass/internal/core/domain"
)

// ChatHistoryEntry is one persisted message as the backend returns it.
// FullName and Username are both carried so the merge layer can apply the
// creator-shows-full-name presentation rule.
type ChatHistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsCreator bool      `json:"is_creator"`
}

// BackendAPI is the persistence collaborator for chat, stats and stream
// lifecycle. All ephemeral room state stays out of it.
type BackendAPI interface {
	PostChatMessage(ctx context.Context, room domain.RoomID, msg domain.ChatMessage) error
	ChatHistory(ctx context.Context, room domain.RoomID) ([]ChatHistoryEntry, error)
	// UpdateViewerCount persists a full snapshot, never a delta.
	UpdateViewerCount(ctx context.Context, room domain.RoomID, count int) error
	// StopStream marks the room as ended, optionally referencing the replay object.
	StopStream(ctx context.Context, room domain.RoomID, replayKey string) error
}

// AcquireLease bounds the validity of an acquired recording resource.
type AcquireLease struct {
	ResourceExpiry time.Duration
}

// StorageConfig describes where the recording service writes its output.
type StorageConfig struct {
	Bucket       string
	Region       string
	PathPrefix   string
	RetentionTag string
}

// StartRecordingRequest carries everything the start call needs.
type StartRecordingRequest struct {
	ResourceID  string
	ChannelName string
	RecorderUID string
	Credential  string
	Storage     StorageConfig
}

// StopRecordingRequest identifies the recording to stop.
type StopRecordingRequest struct {
	ResourceID  string
	SID         string
	ChannelName string
	RecorderUID string
}

// RecordingService is the external cloud-recording collaborator.
type RecordingService interface {
	Acquire(ctx context.Context, channelName, recorderUID string, lease AcquireLease) (resourceID string, err error)
	Start(ctx context.Context, req StartRecordingRequest) (sid string, err error)
	Stop(ctx context.Context, req StopRecordingRequest) (domain.FileManifest, error)
}

// ObjectStore is the storage collaborator; only tag removal is needed here.
type ObjectStore interface {
	RemoveRetentionTag(ctx context.Context, key string) error
}

// CredentialMinter issues short-lived, subscribe-only recorder credentials.
type CredentialMinter interface {
	MintRecorderToken(channelName, recorderUID string, ttl time.Duration) (string, error)
}

// PresenceStore is a server-assisted presence counter used as a fallback
// when the transport's own presence query is unavailable.
type PresenceStore interface {
	Join(ctx context.Context, room domain.RoomID, uid domain.UserID) error
	Leave(ctx context.Context, room domain.RoomID, uid domain.UserID) error
	MemberCount(ctx context.Context, room domain.RoomID) (int, error)
}
