package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newChatFixture(t *testing.T, minSendInterval time.Duration) (*ChatCoordinator, *fakeBackend, *fakeConn) {
	t.Helper()
	sess, conn := newReadySession(t, "room-1", "me")
	backend := &fakeBackend{}
	chat := NewChatCoordinator("room-1", ChatIdentity{UserID: "me", Username: "me_handle"},
		sess, backend, minSendInterval, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())
	return chat, backend, conn
}

func TestChatSendOptimisticThenConfirmed(t *testing.T) {
	chat, backend, conn := newChatFixture(t, time.Millisecond)

	require.NoError(t, chat.Send(context.Background(), "hello"))

	msgs := chat.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Message)
	assert.Equal(t, domain.OriginRealtime, msgs[0].Origin, "confirmed send loses its optimistic marker")

	require.Len(t, backend.posted, 1)
	require.Len(t, conn.Published(), 1)
}

func TestChatSendRejectedBeforeAnyNetworkCall(t *testing.T) {
	chat, backend, conn := newChatFixture(t, time.Hour)

	require.NoError(t, chat.Send(context.Background(), "first"))
	err := chat.Send(context.Background(), "too fast")

	assert.ErrorIs(t, err, domain.ErrSendTooSoon)
	assert.Len(t, conn.Published(), 1, "rejected send must not reach signaling")
	assert.Len(t, backend.posted, 1, "rejected send must not reach persistence")
	assert.Len(t, chat.Messages(), 1, "rejected send leaves no optimistic entry")
}

func TestChatSendRollsBackOnSignalingFailure(t *testing.T) {
	chat, backend, conn := newChatFixture(t, time.Millisecond)
	conn.SetPublishErr(errors.New("publish refused"))

	err := chat.Send(context.Background(), "doomed")

	require.Error(t, err)
	assert.Empty(t, chat.Messages(), "optimistic entry must be rolled back")
	assert.Empty(t, backend.posted)
}

func TestChatSendRollsBackOnPersistFailure(t *testing.T) {
	chat, backend, _ := newChatFixture(t, time.Millisecond)
	backend.postErr = errors.New("backend down")

	err := chat.Send(context.Background(), "doomed")

	require.Error(t, err)
	assert.Empty(t, chat.Messages(), "optimistic entry must be rolled back")
}

func TestChatOwnEchoIsDropped(t *testing.T) {
	chat, _, conn := newChatFixture(t, time.Millisecond)

	require.NoError(t, chat.Send(context.Background(), "hello"))

	// The transport loops the speaker's own publish back to them.
	conn.DeliverMessage(t, "me", domain.ChatEvent{
		UserID:    "me",
		Username:  "me_handle",
		Message:   "hello",
		Timestamp: time.Now().UnixMilli(),
	})

	// Give dispatch a moment; the count must stay at one.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, chat.Messages(), 1, "own echo must not duplicate the optimistic entry")
}

func TestChatRealtimeFromOthersAppended(t *testing.T) {
	chat, _, conn := newChatFixture(t, time.Millisecond)

	conn.DeliverMessage(t, "u2", domain.ChatEvent{
		UserID:    "u2",
		Username:  "alice",
		Message:   "hi there",
		Timestamp: time.Now().UnixMilli(),
	})

	waitFor(t, time.Second, func() bool { return len(chat.Messages()) == 1 })
	got := chat.Messages()[0]
	assert.Equal(t, domain.UserID("u2"), got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.OriginRealtime, got.Origin)
}

func TestChatLoadHistoryCreatorShowsFullName(t *testing.T) {
	chat, backend, _ := newChatFixture(t, time.Millisecond)
	backend.history = []ports.ChatHistoryEntry{
		{ID: "1", UserID: "host", Username: "host_handle", FullName: "Grace Hopper", Message: "welcome", IsCreator: true, Timestamp: time.Now().Add(-time.Minute)},
		{ID: "2", UserID: "u2", Username: "alice", FullName: "Alice Doe", Message: "hey", Timestamp: time.Now().Add(-30 * time.Second)},
	}

	require.NoError(t, chat.LoadHistory(context.Background()))

	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Grace Hopper", msgs[0].Username, "creator appears under full name")
	assert.Equal(t, "alice", msgs[1].Username, "everyone else appears under handle")
	assert.Equal(t, domain.OriginPersisted, msgs[0].Origin)
}

func TestChatLoadHistoryOncePerRoom(t *testing.T) {
	chat, _, _ := newChatFixture(t, time.Millisecond)

	require.NoError(t, chat.LoadHistory(context.Background()))
	err := chat.LoadHistory(context.Background())

	assert.ErrorIs(t, err, domain.ErrHistoryAlreadyLoaded)
}

func TestChatLoadHistoryFailureAllowsRetry(t *testing.T) {
	chat, backend, _ := newChatFixture(t, time.Millisecond)
	backend.historyErr = errors.New("backend down")

	require.Error(t, chat.LoadHistory(context.Background()))

	backend.historyErr = nil
	backend.history = []ports.ChatHistoryEntry{
		{ID: "1", UserID: "u2", Username: "alice", Message: "hey", Timestamp: time.Now()},
	}
	require.NoError(t, chat.LoadHistory(context.Background()))
	assert.Len(t, chat.Messages(), 1)
}

func TestChatHistoryPrependsBeforeRealtime(t *testing.T) {
	chat, backend, conn := newChatFixture(t, time.Millisecond)

	conn.DeliverMessage(t, "u2", domain.ChatEvent{
		UserID: "u2", Username: "alice", Message: "live one",
		Timestamp: time.Now().UnixMilli(),
	})
	waitFor(t, time.Second, func() bool { return len(chat.Messages()) == 1 })

	backend.history = []ports.ChatHistoryEntry{
		{ID: "1", UserID: "host", Username: "host_handle", Message: "old one", Timestamp: time.Now().Add(-time.Hour)},
	}
	require.NoError(t, chat.LoadHistory(context.Background()))

	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "old one", msgs[0].Message)
	assert.Equal(t, "live one", msgs[1].Message)
}
