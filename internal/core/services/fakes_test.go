package services

import (
	"context"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
)

type fakeBackend struct {
	mu sync.Mutex

	posted  []domain.ChatMessage
	postErr error

	history    []ports.ChatHistoryEntry
	historyErr error

	counts   []int
	countErr error

	stoppedRooms []domain.RoomID
	replayKeys   []string
	stopErr      error
}

func (b *fakeBackend) PostChatMessage(ctx context.Context, room domain.RoomID, msg domain.ChatMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return b.postErr
	}
	b.posted = append(b.posted, msg)
	return nil
}

func (b *fakeBackend) ChatHistory(ctx context.Context, room domain.RoomID) ([]ports.ChatHistoryEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return b.history, nil
}

func (b *fakeBackend) UpdateViewerCount(ctx context.Context, room domain.RoomID, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.countErr != nil {
		return b.countErr
	}
	b.counts = append(b.counts, count)
	return nil
}

func (b *fakeBackend) StopStream(ctx context.Context, room domain.RoomID, replayKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopErr != nil {
		return b.stopErr
	}
	b.stoppedRooms = append(b.stoppedRooms, room)
	b.replayKeys = append(b.replayKeys, replayKey)
	return nil
}

func (b *fakeBackend) Counts() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, len(b.counts))
	copy(out, b.counts)
	return out
}

type fakeRecordingService struct {
	mu sync.Mutex

	acquireErr error
	resourceID string
	acquires   int

	startErr      error
	sid           string
	starts        int
	startRequests []ports.StartRecordingRequest

	stopErr      error
	manifest     domain.FileManifest
	stopRequests []ports.StopRecordingRequest
}

func (s *fakeRecordingService) Acquire(ctx context.Context, channelName, recorderUID string, lease ports.AcquireLease) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquires++
	if s.acquireErr != nil {
		return "", s.acquireErr
	}
	return s.resourceID, nil
}

func (s *fakeRecordingService) Start(ctx context.Context, req ports.StartRecordingRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.startRequests = append(s.startRequests, req)
	if s.startErr != nil {
		return "", s.startErr
	}
	return s.sid, nil
}

func (s *fakeRecordingService) Stop(ctx context.Context, req ports.StopRecordingRequest) (domain.FileManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequests = append(s.stopRequests, req)
	if s.stopErr != nil {
		return nil, s.stopErr
	}
	return s.manifest, nil
}

type fakeObjectStore struct {
	mu        sync.Mutex
	removed   []string
	removeErr error
}

func (s *fakeObjectStore) RemoveRetentionTag(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, key)
	return nil
}

type fakeMinter struct {
	token   string
	mintErr error
	minted  []string
}

func (m *fakeMinter) MintRecorderToken(channelName, recorderUID string, ttl time.Duration) (string, error) {
	if m.mintErr != nil {
		return "", m.mintErr
	}
	m.minted = append(m.minted, recorderUID)
	return m.token, nil
}

type fakeMediaTransport struct {
	mu           sync.Mutex
	subscribed   []string
	subscribeErr error
	states       map[domain.UserID]domain.MediaState
}

func (t *fakeMediaTransport) Subscribe(ctx context.Context, uid domain.UserID, media domain.MediaType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribeErr != nil {
		return t.subscribeErr
	}
	t.subscribed = append(t.subscribed, string(uid)+"/"+string(media))
	return nil
}

func (t *fakeMediaTransport) RemoteMediaState(uid domain.UserID) (domain.MediaState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[uid]
	return state, ok
}

type fakePresenceStore struct {
	count    int
	countErr error
}

func (p *fakePresenceStore) Join(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	return nil
}

func (p *fakePresenceStore) Leave(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	return nil
}

func (p *fakePresenceStore) MemberCount(ctx context.Context, room domain.RoomID) (int, error) {
	if p.countErr != nil {
		return 0, p.countErr
	}
	return p.count, nil
}
