package ports

import "liveclass/internal/core/domain"

// Metrics receives coordination-core counters. A nil-safe no-op
// implementation is provided for callers that do not export metrics.
type Metrics interface {
	SessionOpened(room domain.RoomID)
	SessionClosed(room domain.RoomID)
	LoginRetry()
	ChatSent()
	ChatRejected()
	ModerationCommand(kind string)
	ViewerCount(room domain.RoomID, count int)
	RecordingTransition(status domain.RecordingStatus)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) SessionOpened(domain.RoomID)                {}
func (NopMetrics) SessionClosed(domain.RoomID)                {}
func (NopMetrics) LoginRetry()                                {}
func (NopMetrics) ChatSent()                                  {}
func (NopMetrics) ChatRejected()                              {}
func (NopMetrics) ModerationCommand(string)                   {}
func (NopMetrics) ViewerCount(domain.RoomID, int)             {}
func (NopMetrics) RecordingTransition(domain.RecordingStatus) {}
