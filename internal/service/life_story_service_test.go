package service

import (
	"context"
	"encoding/json"
	"testing"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/pkg/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifeStoryCallback(sessionID uuid.UUID, token string, success bool) *dto.LifeStoryCallback {
	cb := &dto.LifeStoryCallback{
		CallbackEnvelope: dto.CallbackEnvelope{
			Success:  boolPtr(success),
			Metadata: &dto.CallbackMetadata{JobToken: token},
		},
		SessionId: sessionID,
	}
	if success {
		cb.Story = json.RawMessage(`{"title":"A Life in Letters"}`)
	} else {
		cb.Error = "model_unavailable"
	}
	return cb
}

// readySession returns a session whose only interview has an approved draft.
func readySession(t *testing.T, h *harness) *entity.Session {
	t.Helper()
	session, iv := h.completed(t)
	h.approve(t, h.draftsOf(t, iv.Id)[0].Id)
	return session
}

func TestLifeStory_RequiresApprovedDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.completed(t)

	_, err := h.stories.GenerateAsync(ctx, session.Id)
	assert.Equal(t, apperror.KindPreconditionFailed, apperror.KindOf(err))

	_, err = h.stories.GenerateAsync(ctx, uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestLifeStory_GenerateAndReconcile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := readySession(t, h)

	ack, err := h.stories.GenerateAsync(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "session:"+session.Id.String(), ack.Room)
	assert.Equal(t, "life-story", ack.Stage)

	msg := h.queue.Last()
	assert.Equal(t, entity.StageLifeStory, msg.Stage)
	assert.Len(t, msg.Drafts, 1)
	assert.Equal(t, "http://api.test/api/webhooks/life-story-complete", msg.CallbackURL)

	_, err = h.stories.GenerateAsync(ctx, session.Id)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	// A story that is still generating does not count yet.
	assert.Equal(t, entity.SessionStatusCompleted, h.session(t, session.Id).Status)

	res, err := h.reconciler.Handle(ctx, lifeStoryCallback(session.Id, ack.JobToken, true))
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeApplied, res.Outcome)

	stories, err := h.stories.List(ctx, h.owner, session.Id)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, 1, stories[0].Version)
	assert.Equal(t, "ready", stories[0].GenerationStatus)
	assert.Equal(t, "draft", stories[0].Status)
	assert.JSONEq(t, `{"title":"A Life in Letters"}`, string(stories[0].Content))
	assert.Len(t, stories[0].SourceDraftIds, 1)

	room := "session:" + session.Id.String()
	assert.Len(t, h.hub.InRoom(room, dto.EventLifeStoryGenerated), 1)
	assert.NotEmpty(t, h.hub.InRoom(room, dto.EventSessionStatusChanged))
	assert.Equal(t, entity.SessionStatusInReview, h.session(t, session.Id).Status)

	// Another run keeps the first version and adds the next one.
	ack, err = h.stories.GenerateAsync(ctx, session.Id)
	require.NoError(t, err)
	_, err = h.reconciler.Handle(ctx, lifeStoryCallback(session.Id, ack.JobToken, true))
	require.NoError(t, err)

	stories, err = h.stories.List(ctx, h.owner, session.Id)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, 2, stories[1].Version)
}

func TestLifeStory_FailureCallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := readySession(t, h)

	ack, err := h.stories.GenerateAsync(ctx, session.Id)
	require.NoError(t, err)

	res, err := h.reconciler.Handle(ctx, lifeStoryCallback(session.Id, ack.JobToken, false))
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeApplied, res.Outcome)

	stories, err := h.stories.List(ctx, h.admin, session.Id)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "failed", stories[0].GenerationStatus)
	assert.Equal(t, "model_unavailable", stories[0].GenerationError)
	assert.Equal(t, entity.SessionStatusCompleted, h.session(t, session.Id).Status)
	assert.Len(t, h.hub.InRoom("session:"+session.Id.String(), dto.EventLifeStoryFailed), 1)

	_, err = h.stories.Transition(ctx, h.admin, stories[0].Id, &dto.TransitionRequest{Status: "approved"})
	assert.Equal(t, apperror.KindPreconditionFailed, apperror.KindOf(err))
}

func TestLifeStory_SyncAndTransition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := readySession(t, h)

	story, err := h.stories.GenerateSync(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "ready", story.GenerationStatus)
	assert.JSONEq(t, `{"story":"Once upon a time"}`, string(story.Content))

	_, err = h.stories.Transition(ctx, h.admin, story.Id, &dto.TransitionRequest{Status: "archived"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	approved, err := h.stories.Transition(ctx, h.admin, story.Id, &dto.TransitionRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)
	assert.Len(t, h.hub.InRoom("session:"+session.Id.String(), dto.EventLifeStoryStatusChanged), 1)
}

func TestLifeStory_SyncPipelineError(t *testing.T) {
	h := newHarness(t)
	session := readySession(t, h)
	h.pipe.story = func(context.Context, pipeline.StoryRequest) (*pipeline.Result, error) {
		return nil, &pipeline.Error{Op: "life-story", Reason: "model_unavailable"}
	}

	_, err := h.stories.GenerateSync(context.Background(), session.Id)
	assert.Equal(t, apperror.KindPipelineFailure, apperror.KindOf(err))
	assert.False(t, h.active(t, session.Id, entity.StageLifeStory))
}

func TestLifeStory_ListIsOwnerOnly(t *testing.T) {
	h := newHarness(t)
	session := readySession(t, h)

	_, err := h.stories.List(context.Background(), dto.Actor{UserId: uuid.New()}, session.Id)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
