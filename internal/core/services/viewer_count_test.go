package services

import (
	"context"
	"testing"
	"time"

	"liveclass/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestViewerCountFollowsPresenceEvents(t *testing.T) {
	sess, conn := newReadySession(t, "room-1", "host")
	backend := &fakeBackend{}
	vc := NewViewerCountSync("room-1", false, sess, nil, backend,
		10*time.Millisecond, time.Hour, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vc.Start(ctx)

	conn.DeliverPresence(7)

	waitFor(t, time.Second, func() bool { return vc.Snapshot().LiveCount == 7 })
}

func TestViewerCountPollFallsBackToPresenceStore(t *testing.T) {
	// A session that never logged in cannot answer presence queries; the
	// server-assisted store is the fallback.
	transport := &fakeTransport{conn: newFakeConn()}
	sess := newSession("room-1", transport, fastBackoff(), ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())
	store := &fakePresenceStore{count: 4}
	vc := NewViewerCountSync("room-1", false, sess, store, &fakeBackend{},
		5*time.Millisecond, time.Hour, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vc.Start(ctx)

	waitFor(t, time.Second, func() bool { return vc.Snapshot().LiveCount == 4 })
}

func TestViewerCountHostFlushesFullSnapshot(t *testing.T) {
	sess, conn := newReadySession(t, "room-1", "host")
	backend := &fakeBackend{}
	vc := NewViewerCountSync("room-1", true, sess, nil, backend,
		time.Hour, 10*time.Millisecond, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vc.Start(ctx)

	conn.DeliverPresence(12)
	waitFor(t, time.Second, func() bool { return vc.Snapshot().LiveCount == 12 })

	waitFor(t, time.Second, func() bool { return len(backend.Counts()) >= 2 })
	for _, count := range backend.Counts() {
		assert.Equal(t, 12, count, "every flush carries the full snapshot, never a delta")
	}
	assert.False(t, vc.Snapshot().LastSyncedAt.IsZero())
}

func TestViewerCountNonHostNeverFlushes(t *testing.T) {
	sess, conn := newReadySession(t, "room-1", "viewer")
	backend := &fakeBackend{}
	vc := NewViewerCountSync("room-1", false, sess, nil, backend,
		5*time.Millisecond, 5*time.Millisecond, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vc.Start(ctx)

	conn.DeliverPresence(3)
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, backend.Counts(), "only the host persists the count")
}

func TestViewerCountFlushFailureRetriedNextTick(t *testing.T) {
	sess, conn := newReadySession(t, "room-1", "host")
	backend := &fakeBackend{}
	backend.countErr = assert.AnError
	vc := NewViewerCountSync("room-1", true, sess, nil, backend,
		time.Hour, 10*time.Millisecond, ports.NopMetrics{}, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vc.Start(ctx)

	conn.DeliverPresence(5)
	time.Sleep(30 * time.Millisecond)
	assert.True(t, vc.Snapshot().LastSyncedAt.IsZero(), "failed flush must not look synced")

	backend.mu.Lock()
	backend.countErr = nil
	backend.mu.Unlock()

	waitFor(t, time.Second, func() bool { return len(backend.Counts()) > 0 })
	assert.Equal(t, 5, backend.Counts()[0])
}
