package services

import (
	"fmt"

	"liveclass/internal/core/domain"
)

// ViewInput is everything the roster derivation consumes. The computation is
// a pure function of this struct; fixtures make it fully unit-testable.
type ViewInput struct {
	Local        domain.Participant
	IncludeLocal bool

	// RemoteRoster is the transport's membership list in arrival order.
	RemoteRoster []domain.UserID

	// MediaStates is the event-derived camera/mic map.
	MediaStates map[domain.UserID]domain.MediaState

	// TransportStates are the transport's own per-user flags, used when the
	// event-derived map has no entry yet (user published media before
	// presence propagated).
	TransportStates map[domain.UserID]domain.MediaState

	// Names is the display-name directory propagated over presence.
	Names map[domain.UserID]domain.Profile

	// Kicked uids are filtered out even if their leave event never arrived.
	Kicked map[domain.UserID]struct{}
}

// ComputeParticipants derives the ordered participant list for rendering.
// The local participant, when included, is always first.
func ComputeParticipants(in ViewInput) []domain.Participant {
	out := make([]domain.Participant, 0, len(in.RemoteRoster)+1)
	if in.IncludeLocal {
		local := in.Local
		local.IsLocal = true
		out = append(out, local)
	}

	for _, uid := range in.RemoteRoster {
		if _, kicked := in.Kicked[uid]; kicked {
			continue
		}

		p := domain.Participant{ID: uid}

		if profile, ok := in.Names[uid]; ok {
			p.DisplayName = profile.DisplayName
			p.AvatarRef = profile.AvatarRef
		} else {
			// Name has not propagated yet.
			p.DisplayName = fmt.Sprintf("User %s", uid)
		}

		if state, ok := in.MediaStates[uid]; ok {
			p.CameraOn = state.CameraOn
			p.MicOn = state.MicOn
		} else if state, ok := in.TransportStates[uid]; ok {
			p.CameraOn = state.CameraOn
			p.MicOn = state.MicOn
		}

		out = append(out, p)
	}
	return out
}
