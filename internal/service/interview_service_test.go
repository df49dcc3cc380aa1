package service

import (
	"context"
	"testing"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterview_Start(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, iv := h.seed(t, entity.InterviewStatusScheduled)

	res, err := h.interviews.Start(ctx, h.owner, iv.Id)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", res.Status)
	assert.NotNil(t, res.StartedAt)
	assert.Equal(t, entity.SessionStatusActive, h.session(t, session.Id).Status)
	assert.Len(t, h.hub.InRoom("interview:"+iv.Id.String(), dto.EventInterviewStatusChanged), 1)

	_, err = h.interviews.Start(ctx, h.owner, iv.Id)
	assert.Equal(t, apperror.KindPreconditionFailed, apperror.KindOf(err))
}

func TestInterview_Status(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	_, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)

	status, err := h.interviews.Status(ctx, h.owner, iv.Id)
	require.NoError(t, err)
	assert.Equal(t, "processing", status.Status)
	assert.Equal(t, []string{"transcription"}, status.ActiveStages)
	assert.Empty(t, status.FailureReason)

	_, err = h.interviews.Status(ctx, dto.Actor{UserId: uuid.New()}, iv.Id)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestInterview_DeleteRefusedWhileJobInFlight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, iv := h.seed(t, entity.InterviewStatusInProgress)

	ack, err := h.ingest.UploadAsync(ctx, h.owner, upload(iv.Id, dto.UploadModeAsync))
	require.NoError(t, err)

	err = h.interviews.Delete(ctx, iv.Id)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.NotNil(t, h.interview(t, iv.Id))
	assert.True(t, h.active(t, iv.Id, entity.StageTranscription))

	_, err = h.reconciler.Handle(ctx, transcriptionCallback(iv.Id, true, ack.JobToken))
	require.NoError(t, err)

	require.NoError(t, h.interviews.Delete(ctx, iv.Id))
	assert.Nil(t, h.interview(t, iv.Id))

	err = h.interviews.Delete(ctx, iv.Id)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

