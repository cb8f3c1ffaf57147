package domain

// RecordingStatus is one step of the cloud-recording lifecycle.
type RecordingStatus string

const (
	RecordingNotStarted RecordingStatus = "not_started"
	RecordingAcquiring  RecordingStatus = "acquiring"
	RecordingAcquired   RecordingStatus = "acquired"
	RecordingStarting   RecordingStatus = "starting"
	RecordingStarted    RecordingStatus = "started"
	RecordingStopping   RecordingStatus = "stopping"
	RecordingStopped    RecordingStatus = "stopped"
	RecordingFailed     RecordingStatus = "failed"
)

// RetentionTag marks a freshly written recording object as temporary.
// Storage lifecycle rules delete objects carrying it; removing the tag after
// a successful stop is what makes the recording permanent.
const (
	RetentionTagKey   = "lifecycle"
	RetentionTagValue = "temp"
)

// RecordingSession tracks one acquire/start/stop cycle against the cloud
// recording service. ChannelName doubles as the room id (cname).
type RecordingSession struct {
	ResourceID  string
	SID         string
	RecorderUID string
	ChannelName string
	Status      RecordingStatus
}

// RecordingHandle is the minimal tuple needed to stop a recording that was
// started by a client which has since disappeared (browser close). It is
// captured client-side before the tab unloads.
type RecordingHandle struct {
	ResourceID  string `json:"resource_id"`
	SID         string `json:"sid"`
	RecorderUID string `json:"recorder_uid"`
}

// Valid reports whether the handle identifies a stoppable recording.
func (h RecordingHandle) Valid() bool {
	return h.ResourceID != "" && h.SID != "" && h.RecorderUID != ""
}

// RecordedFile is one object in the stop-call file manifest.
type RecordedFile struct {
	FileName  string `json:"file_name"`
	TrackType string `json:"track_type"`
	MixedAll  bool   `json:"mixed_all"`
}

// FileManifest is the list of objects a stopped recording produced.
type FileManifest []RecordedFile

// PrimaryOutput returns the main playable object of the manifest: the first
// mp4, falling back to the first file at all.
func (m FileManifest) PrimaryOutput() (RecordedFile, bool) {
	for _, f := range m {
		if len(f.FileName) > 4 && f.FileName[len(f.FileName)-4:] == ".mp4" {
			return f, true
		}
	}
	if len(m) > 0 {
		return m[0], true
	}
	return RecordedFile{}, false
}
