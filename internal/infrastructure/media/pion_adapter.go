package media

import (
	"context"
	"fmt"
	"sync"

	"liveclass/internal/core/domain"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// MediaEvents receives the three event kinds the coordination core consumes
// from the media path. Typically wired to the MediaStateTracker handlers.
type MediaEvents struct {
	OnPublished   func(ctx context.Context, uid domain.UserID, media domain.MediaType)
	OnUnpublished func(uid domain.UserID, media domain.MediaType)
	OnLeft        func(uid domain.UserID)
}

type remoteTrack struct {
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
	pc       *webrtc.PeerConnection
}

// PionAdapter bridges pion peer connections to the media-transport boundary:
// it translates track lifecycle into published/unpublished/left events and
// implements the Subscribe call that makes a lane actually flow. Implements
// ports.MediaTransport.
type PionAdapter struct {
	events MediaEvents
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	tracks map[domain.UserID]map[domain.MediaType]*remoteTrack
}

func NewPionAdapter(events MediaEvents, logger *zap.SugaredLogger) *PionAdapter {
	return &PionAdapter{
		events: events,
		logger: logger,
		tracks: make(map[domain.UserID]map[domain.MediaType]*remoteTrack),
	}
}

// AttachPeer registers a remote user's peer connection. Track arrivals fire
// published events; the connection closing fires left.
func (a *PionAdapter) AttachPeer(ctx context.Context, uid domain.UserID, pc *webrtc.PeerConnection) {
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		media := mediaTypeOf(track.Kind())

		a.mu.Lock()
		if a.tracks[uid] == nil {
			a.tracks[uid] = make(map[domain.MediaType]*remoteTrack)
		}
		a.tracks[uid][media] = &remoteTrack{track: track, receiver: receiver, pc: pc}
		a.mu.Unlock()

		if a.events.OnPublished != nil {
			a.events.OnPublished(ctx, uid, media)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed:
			a.DetachPeer(uid)
		}
	})
}

// DetachPeer drops the user's tracks and fires the left event.
func (a *PionAdapter) DetachPeer(uid domain.UserID) {
	a.mu.Lock()
	_, known := a.tracks[uid]
	delete(a.tracks, uid)
	a.mu.Unlock()

	if known && a.events.OnLeft != nil {
		a.events.OnLeft(uid)
	}
}

// HandleUnpublish drops one lane and fires the unpublished event.
func (a *PionAdapter) HandleUnpublish(uid domain.UserID, media domain.MediaType) {
	a.mu.Lock()
	if lanes, ok := a.tracks[uid]; ok {
		delete(lanes, media)
	}
	a.mu.Unlock()

	if a.events.OnUnpublished != nil {
		a.events.OnUnpublished(uid, media)
	}
}

// Subscribe requests that the lane's data actually flows. For video this
// means asking the publisher for a fresh keyframe via PLI, so the renderer
// does not sit on grey frames until the next spontaneous keyframe.
func (a *PionAdapter) Subscribe(ctx context.Context, uid domain.UserID, media domain.MediaType) error {
	a.mu.RLock()
	lanes, ok := a.tracks[uid]
	var rt *remoteTrack
	if ok {
		rt = lanes[media]
	}
	a.mu.RUnlock()

	if rt == nil {
		return fmt.Errorf("no %s track for user %s", media, uid)
	}

	if media == domain.MediaVideo {
		pli := &rtcp.PictureLossIndication{MediaSSRC: uint32(rt.track.SSRC())}
		if err := rt.pc.WriteRTCP([]rtcp.Packet{pli}); err != nil {
			return fmt.Errorf("failed to request keyframe for %s: %w", uid, err)
		}
	}
	return nil
}

// RemoteMediaState reports the transport's own per-user flags, derived from
// which tracks are currently attached.
func (a *PionAdapter) RemoteMediaState(uid domain.UserID) (domain.MediaState, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lanes, ok := a.tracks[uid]
	if !ok {
		return domain.MediaState{}, false
	}
	_, video := lanes[domain.MediaVideo]
	_, audio := lanes[domain.MediaAudio]
	return domain.MediaState{CameraOn: video, MicOn: audio}, true
}

func mediaTypeOf(kind webrtc.RTPCodecType) domain.MediaType {
	if kind == webrtc.RTPCodecTypeVideo {
		return domain.MediaVideo
	}
	return domain.MediaAudio
}
