package domain

type RoomID string
type UserID string

// MediaType identifies one of the two media lanes a participant can publish.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Role distinguishes the room creator (host) from regular members.
type Role string

const (
	RoleHost   Role = "host"
	RoleMember Role = "member"
)

// Participant is one row of the rendered roster. Identity fields are set at
// room join and never change; media flags are owned by the media state
// tracker for remote users and by local UI toggles for the local user.
type Participant struct {
	ID          UserID
	DisplayName string
	AvatarRef   string
	IsLocal     bool
	CameraOn    bool
	MicOn       bool
	IsKicked    bool
}

// Profile is a display-name directory entry propagated over presence.
type Profile struct {
	DisplayName string
	AvatarRef   string
}

// MediaState is the last-known camera/mic state for one user.
type MediaState struct {
	CameraOn bool
	MicOn    bool
}
