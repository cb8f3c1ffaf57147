package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"
	cerrors "liveclass/pkg/errors"
	"liveclass/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordingOptions bind a lifecycle manager to one creator and room.
type RecordingOptions struct {
	CreatorID      domain.UserID
	Room           domain.RoomID
	Bucket         string
	Region         string
	ResourceExpiry time.Duration
	CredentialTTL  time.Duration
}

// CleanupRequest is the abrupt-disconnect payload: the recording tuple was
// captured client-side before the tab closed.
type CleanupRequest struct {
	Room        domain.RoomID          `json:"room_id"`
	IsRecording bool                   `json:"is_recording"`
	Recording   domain.RecordingHandle `json:"recording_details"`
	ReplayKey   string                 `json:"replay_key,omitempty"`
}

// RecordingLifecycleManager orchestrates acquire, start and stop against the
// external cloud-recording service and lifts the retention tag from the
// finished object so storage lifecycle rules do not delete it.
//
// State machine: not_started -> acquiring -> acquired -> starting -> started
// -> stopping -> stopped, with failed reachable from any step.
type RecordingLifecycleManager struct {
	opts    RecordingOptions
	recsvc  ports.RecordingService
	store   ports.ObjectStore
	backend ports.BackendAPI
	minter  ports.CredentialMinter
	metrics ports.Metrics
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	session domain.RecordingSession
}

func NewRecordingLifecycleManager(opts RecordingOptions, recsvc ports.RecordingService, store ports.ObjectStore, backend ports.BackendAPI, minter ports.CredentialMinter, metrics ports.Metrics, logger *zap.SugaredLogger) *RecordingLifecycleManager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if opts.ResourceExpiry <= 0 {
		opts.ResourceExpiry = 72 * time.Hour
	}
	if opts.CredentialTTL <= 0 {
		opts.CredentialTTL = time.Hour
	}
	return &RecordingLifecycleManager{
		opts:    opts,
		recsvc:  recsvc,
		store:   store,
		backend: backend,
		minter:  minter,
		metrics: metrics,
		logger:  logger,
		session: domain.RecordingSession{
			ChannelName: string(opts.Room),
			Status:      domain.RecordingNotStarted,
		},
	}
}

// Acquire requests a bounded-lease resource id for the room and generates
// the recorder identity.
func (m *RecordingLifecycleManager) Acquire(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "recording.acquire")
	defer span.End()

	m.mu.Lock()
	switch m.session.Status {
	case domain.RecordingNotStarted, domain.RecordingStopped, domain.RecordingFailed:
	default:
		status := m.session.Status
		m.mu.Unlock()
		return fmt.Errorf("%w: acquire from %s", domain.ErrInvalidRecordingState, status)
	}
	m.setStatusLocked(domain.RecordingAcquiring)
	recorderUID := uuid.NewString()
	m.session.RecorderUID = recorderUID
	m.session.SID = ""
	m.mu.Unlock()

	resourceID, err := m.recsvc.Acquire(ctx, string(m.opts.Room), recorderUID, ports.AcquireLease{
		ResourceExpiry: m.opts.ResourceExpiry,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.setStatusLocked(domain.RecordingFailed)
		return fmt.Errorf("failed to acquire recording resource for %s: %w", m.opts.Room, err)
	}
	m.session.ResourceID = resourceID
	m.setStatusLocked(domain.RecordingAcquired)
	m.logger.Infow("recording resource acquired",
		"room", m.opts.Room, "resource_id", resourceID, "recorder_uid", recorderUID)
	return nil
}

// Start mints a short-lived subscribe-only recorder credential, builds the
// tagged storage destination and issues the start call. A second Start
// without an intervening Acquire reuses the existing resource id. Credential
// mint failure aborts the start and leaves the state at acquired; invoking
// Start again is the only recovery.
func (m *RecordingLifecycleManager) Start(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "recording.start")
	defer span.End()

	m.mu.Lock()
	if m.session.Status != domain.RecordingAcquired || m.session.ResourceID == "" {
		status := m.session.Status
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", domain.ErrInvalidRecordingState, status)
	}
	resourceID := m.session.ResourceID
	recorderUID := m.session.RecorderUID
	m.setStatusLocked(domain.RecordingStarting)
	m.mu.Unlock()

	credential, err := m.minter.MintRecorderToken(string(m.opts.Room), recorderUID, m.opts.CredentialTTL)
	if err != nil {
		// A recording without a valid credential cannot function; no
		// silent fallback. The resource stays acquired for another Start.
		m.mu.Lock()
		m.setStatusLocked(domain.RecordingAcquired)
		m.mu.Unlock()
		return cerrors.Wrap(fmt.Errorf("%w: %v", domain.ErrCredentialMint, err),
			cerrors.ClassFatal, "recording.start", "recorder credential minting failed")
	}

	sid, err := m.recsvc.Start(ctx, ports.StartRecordingRequest{
		ResourceID:  resourceID,
		ChannelName: string(m.opts.Room),
		RecorderUID: recorderUID,
		Credential:  credential,
		Storage: ports.StorageConfig{
			Bucket:       m.opts.Bucket,
			Region:       m.opts.Region,
			PathPrefix:   fmt.Sprintf("creators/%s/streams/%s", m.opts.CreatorID, m.opts.Room),
			RetentionTag: domain.RetentionTagKey + "=" + domain.RetentionTagValue,
		},
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.setStatusLocked(domain.RecordingFailed)
		return fmt.Errorf("failed to start recording for %s: %w", m.opts.Room, err)
	}
	m.session.SID = sid
	m.setStatusLocked(domain.RecordingStarted)
	m.logger.Infow("recording started", "room", m.opts.Room, "sid", sid)
	return nil
}

// Stop issues the stop call and best-effort removes the retention tag from
// the primary output object. Tag-removal failure does not revert the stop;
// the recording is already persisted and only the protection against
// automated deletion is at risk, so the failure is flagged for follow-up.
func (m *RecordingLifecycleManager) Stop(ctx context.Context) (domain.FileManifest, error) {
	ctx, span := tracing.StartSpan(ctx, "recording.stop")
	defer span.End()

	m.mu.Lock()
	if m.session.Status != domain.RecordingStarted {
		status := m.session.Status
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: stop from %s", domain.ErrInvalidRecordingState, status)
	}
	req := ports.StopRecordingRequest{
		ResourceID:  m.session.ResourceID,
		SID:         m.session.SID,
		ChannelName: m.session.ChannelName,
		RecorderUID: m.session.RecorderUID,
	}
	m.setStatusLocked(domain.RecordingStopping)
	m.mu.Unlock()

	manifest, err := m.recsvc.Stop(ctx, req)
	if err != nil {
		m.mu.Lock()
		m.setStatusLocked(domain.RecordingFailed)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to stop recording for %s: %w", m.opts.Room, err)
	}

	m.liftRetention(ctx, manifest)

	m.mu.Lock()
	m.setStatusLocked(domain.RecordingStopped)
	m.mu.Unlock()
	m.logger.Infow("recording stopped", "room", m.opts.Room, "files", len(manifest))
	return manifest, nil
}

// liftRetention removes the retention tag from the manifest's primary
// output. Failure is a recoverable defect logged for manual follow-up.
func (m *RecordingLifecycleManager) liftRetention(ctx context.Context, manifest domain.FileManifest) {
	primary, ok := manifest.PrimaryOutput()
	if !ok {
		m.logger.Errorw("recording manifest has no output object; nothing to untag",
			"room", m.opts.Room, "error", domain.ErrNoRecordingOutput)
		return
	}
	if err := m.store.RemoveRetentionTag(ctx, primary.FileName); err != nil {
		m.logger.Errorw("retention tag removal failed; object may be garbage-collected, follow up manually",
			"room", m.opts.Room, "key", primary.FileName, "error", err)
	}
}

// CleanupAbrupt is the browser-close path: stop the recording from the
// client-captured handle and mark the stream ended, as two independent
// attempts. A failure in one must not prevent the other, because nobody is
// left to retry.
func (m *RecordingLifecycleManager) CleanupAbrupt(ctx context.Context, req CleanupRequest) error {
	ctx, span := tracing.StartSpan(ctx, "recording.cleanup_abrupt")
	defer span.End()

	var errs []error
	var replayKey string

	if req.IsRecording && req.Recording.Valid() {
		manifest, err := m.recsvc.Stop(ctx, ports.StopRecordingRequest{
			ResourceID:  req.Recording.ResourceID,
			SID:         req.Recording.SID,
			ChannelName: string(req.Room),
			RecorderUID: req.Recording.RecorderUID,
		})
		if err != nil {
			m.logger.Errorw("abrupt cleanup: recording stop failed",
				"room", req.Room, "error", err)
			errs = append(errs, fmt.Errorf("stop recording: %w", err))
		} else {
			m.liftRetention(ctx, manifest)
			if primary, ok := manifest.PrimaryOutput(); ok {
				replayKey = primary.FileName
			}
		}
	}

	if replayKey == "" {
		replayKey = req.ReplayKey
	}
	if err := m.backend.StopStream(ctx, req.Room, replayKey); err != nil {
		m.logger.Errorw("abrupt cleanup: stop-stream failed", "room", req.Room, "error", err)
		errs = append(errs, fmt.Errorf("stop stream: %w", err))
	}

	return errors.Join(errs...)
}

// Session returns a copy of the current recording session.
func (m *RecordingLifecycleManager) Session() domain.RecordingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *RecordingLifecycleManager) setStatusLocked(status domain.RecordingStatus) {
	m.session.Status = status
	m.metrics.RecordingTransition(status)
}
