package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/storage"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_StoreErrorKeepsJobForRedelivery(t *testing.T) {
	var flaky *flakyStore
	h := newHarness(t, withFlakyStore(&flaky))
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	ack, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)
	cb := transcriptionCallback(iv.Id, true, ack.JobToken)

	flaky.setFailing(true)
	_, err = h.reconciler.Handle(ctx, cb)
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, entity.InterviewStatusProcessing, h.interview(t, iv.Id).Status)
	assert.True(t, h.active(t, iv.Id, entity.StageTranscription))

	flaky.setFailing(false)
	res, err := h.reconciler.Handle(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeApplied, res.Outcome)
	assert.Equal(t, entity.InterviewStatusCompleted, h.interview(t, iv.Id).Status)
	assert.Len(t, h.draftsOf(t, iv.Id), 1)
}

func TestReconciler_StoreErrorThenTimeoutAllowsRetry(t *testing.T) {
	var flaky *flakyStore
	h := newHarness(t, withFlakyStore(&flaky))
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	ack, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)

	flaky.setFailing(true)
	_, err = h.reconciler.Handle(ctx, transcriptionCallback(iv.Id, true, ack.JobToken))
	require.Error(t, err)
	flaky.setFailing(false)

	h.clock.Advance(6 * time.Minute)
	n, err := h.corr.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := h.interview(t, iv.Id)
	assert.Equal(t, entity.InterviewStatusFailed, stored.Status)
	assert.Equal(t, entity.FailureReasonTimeout, stored.FailureReason)

	retry, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Attempt)
}

func TestSweep_StoreErrorRetriedOnNextSweep(t *testing.T) {
	var flaky *flakyStore
	h := newHarness(t, withFlakyStore(&flaky))
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	_, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)
	flaky.setFailing(true)
	n, err := h.corr.Sweep(ctx)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, n)
	assert.Equal(t, entity.InterviewStatusProcessing, h.interview(t, iv.Id).Status)

	flaky.setFailing(false)
	n, err = h.corr.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, entity.InterviewStatusFailed, h.interview(t, iv.Id).Status)
}

func TestSyncUpload_StoreErrorLeavesJobToExpire(t *testing.T) {
	var flaky *flakyStore
	h := newHarness(t, withFlakyStore(&flaky))
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	h.pipe.transcribe = func(context.Context, pipeline.TranscribeRequest) (*pipeline.Result, error) {
		flaky.setFailing(true)
		return &pipeline.Result{Transcription: "I was born in a small town."}, nil
	}
	_, err := h.ingest.UploadSync(ctx, h.owner, upload(iv.Id, dto.UploadModeSync))
	require.ErrorIs(t, err, errStoreDown)
	assert.True(t, h.active(t, iv.Id, entity.StageTranscription))

	flaky.setFailing(false)
	h.clock.Advance(6 * time.Minute)
	assert.False(t, h.active(t, iv.Id, entity.StageTranscription))
	assert.Equal(t, entity.InterviewStatusFailed, h.interview(t, iv.Id).Status)
}

func TestLostJob_TimedOutAfterCeiling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	log := logger.NewNopLogger()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	_, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)
	processingSince := h.interview(t, iv.Id).UpdatedAt

	// A restarted instance with an empty job store.
	corr := correlator.New(correlator.NewMemoryStore(), correlator.WithTimeout(5*time.Minute), correlator.WithClock(h.clock.Now))
	corr.OnExpire(h.lifecycle.Expired)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	runner := NewStageRunner(corr, h.pipe, h.queue, h.lifecycle, "http://api.test/api/webhooks", log)
	ingest := NewIngestService(h.store, corr, runner, files, IngestLimits{MaxBytes: 1 << 20, AllowedTypes: []string{"audio/wav"}}, log)
	interviews := NewInterviewService(h.store, corr, h.lifecycle, h.hub, log)

	h.clock.Set(processingSince.Add(time.Minute))
	_, err = ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	h.clock.Set(processingSince.Add(5 * time.Minute))
	status, err := interviews.Status(ctx, h.owner, iv.Id)
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, "timeout", status.FailureReason)
	assert.NotEmpty(t, h.hub.InRoom("interview:"+iv.Id.String(), dto.EventInterviewStatusChanged))

	_, err = ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)
}

func TestLostJob_RecoveredByRetryUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	ack, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)

	// The slot is released without the interview leaving Processing.
	require.NoError(t, h.corr.Abort(ctx, ack.JobToken))
	h.clock.Set(h.interview(t, iv.Id).UpdatedAt.Add(5 * time.Minute))

	retry, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Attempt)
	assert.Equal(t, entity.InterviewStatusProcessing, h.interview(t, iv.Id).Status)
}

// stuckStore cannot release any job.
type stuckStore struct {
	*correlator.MemoryStore
}

func (stuckStore) Take(context.Context, string) (*correlator.Job, error) {
	return nil, errStoreDown
}

type errorLog struct {
	logger.ILogger
	mu     sync.Mutex
	errors []string
}

func (l *errorLog) Error(module, message string, _ map[string]interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, module+": "+message)
	l.mu.Unlock()
}

func TestAbortJob_LogsReleaseFailure(t *testing.T) {
	ctx := context.Background()
	corr := correlator.New(stuckStore{correlator.NewMemoryStore()})
	job, err := corr.Register(ctx, correlator.Key{SubjectID: uuid.New(), Stage: string(entity.StageLifeStory)})
	require.NoError(t, err)

	log := &errorLog{ILogger: logger.NewNopLogger()}
	abortJob(ctx, corr, job, log, "LifeStory")
	assert.Equal(t, []string{"LifeStory: Failed to release job slot"}, log.errors)
}
