package service

import (
	"context"
	"errors"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"
	"lifestory-be/pkg/lifecycle"

	"github.com/google/uuid"
)

type IDraftService interface {
	ListByInterview(ctx context.Context, actor dto.Actor, interviewID uuid.UUID) ([]*dto.DraftResponse, error)
	Transition(ctx context.Context, actor dto.Actor, draftID uuid.UUID, req *dto.TransitionRequest) (*dto.DraftResponse, error)
	AppendNote(ctx context.Context, actor dto.Actor, draftID uuid.UUID, req *dto.AppendNoteRequest) (*dto.DraftNoteResponse, error)
	ListNotes(ctx context.Context, draftID uuid.UUID) ([]*dto.DraftNoteResponse, error)
	ListConflicts(ctx context.Context, draftID uuid.UUID) ([]*dto.ConflictResponse, error)
	ResolveConflict(ctx context.Context, actor dto.Actor, conflictID uuid.UUID, req *dto.ResolveConflictRequest) (*dto.ConflictResponse, error)
	// RegenerateAsync queues a new draft version for a completed interview.
	RegenerateAsync(ctx context.Context, interviewID uuid.UUID) (*dto.JobAcknowledgement, error)
	// RegenerateSync waits for the new version and returns it.
	RegenerateSync(ctx context.Context, interviewID uuid.UUID) (*dto.DraftResponse, error)
}

type draftService struct {
	uowFactory unitofwork.RepositoryFactory
	correlator *correlator.Correlator
	runner     *StageRunner
	notify     *notifier
	logger     logger.ILogger
}

func NewDraftService(
	uowFactory unitofwork.RepositoryFactory,
	corr *correlator.Correlator,
	runner *StageRunner,
	broadcaster Broadcaster,
	publisher events.Publisher,
	log logger.ILogger,
) IDraftService {
	return &draftService{
		uowFactory: uowFactory,
		correlator: corr,
		runner:     runner,
		notify:     newNotifier(broadcaster, publisher, log),
		logger:     log,
	}
}

func (s *draftService) ListByInterview(ctx context.Context, actor dto.Actor, interviewID uuid.UUID) ([]*dto.DraftResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := interviewFor(ctx, uow, actor, interviewID); err != nil {
		return nil, err
	}
	drafts, err := uow.DraftRepository().FindByInterviewID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	return dto.NewDraftResponses(drafts), nil
}

func (s *draftService) findDraft(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Draft, error) {
	draft, err := uow.DraftRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, apperror.NotFound("draft not found")
	}
	return draft, nil
}

func (s *draftService) Transition(ctx context.Context, actor dto.Actor, draftID uuid.UUID, req *dto.TransitionRequest) (*dto.DraftResponse, error) {
	target := entity.DraftStatus(req.Status)
	if !lifecycle.ValidDraftStatus(target) {
		return nil, apperror.Validation("unknown draft status " + req.Status)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	draft, err := s.findDraft(ctx, uow, draftID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckDraft(draft.Status, target); err != nil {
		return nil, apperror.Conflict(err.Error())
	}

	ok, err := uow.DraftRepository().TransitionStatus(ctx, draftID, []entity.DraftStatus{draft.Status}, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Conflict("draft status changed concurrently")
	}

	previous := draft.Status
	if draft, err = s.findDraft(ctx, uow, draftID); err != nil {
		return nil, err
	}

	s.logger.Info("Draft", "Draft status changed", map[string]interface{}{
		"draft_id": draftID, "from": previous, "to": target, "by": actor.UserId,
	})
	res := dto.NewDraftResponse(draft)
	s.notify.toRoom(ctx, "", websocket.InterviewRoom(draft.InterviewId), dto.EventDraftStatusChanged, res)
	s.notify.domain(ctx, events.DraftStatusChanged, map[string]interface{}{
		"draft_id": draftID.String(), "interview_id": draft.InterviewId.String(), "from": string(previous), "to": string(target),
	})
	return res, nil
}

func (s *draftService) AppendNote(ctx context.Context, actor dto.Actor, draftID uuid.UUID, req *dto.AppendNoteRequest) (*dto.DraftNoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findDraft(ctx, uow, draftID); err != nil {
		return nil, err
	}

	note := &entity.DraftNote{
		DraftId:  draftID,
		AuthorId: actor.UserId,
		Body:     req.Body,
	}
	if err := uow.DraftNoteRepository().Append(ctx, note); err != nil {
		return nil, err
	}
	return dto.NewDraftNoteResponse(note), nil
}

func (s *draftService) ListNotes(ctx context.Context, draftID uuid.UUID) ([]*dto.DraftNoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findDraft(ctx, uow, draftID); err != nil {
		return nil, err
	}
	notes, err := uow.DraftNoteRepository().FindByDraftID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.DraftNoteResponse, 0, len(notes))
	for _, n := range notes {
		res = append(res, dto.NewDraftNoteResponse(n))
	}
	return res, nil
}

func (s *draftService) ListConflicts(ctx context.Context, draftID uuid.UUID) ([]*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findDraft(ctx, uow, draftID); err != nil {
		return nil, err
	}
	conflicts, err := uow.ConflictRepository().FindByDraftID(ctx, draftID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		res = append(res, dto.NewConflictResponse(c))
	}
	return res, nil
}

func (s *draftService) ResolveConflict(ctx context.Context, actor dto.Actor, conflictID uuid.UUID, req *dto.ResolveConflictRequest) (*dto.ConflictResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conflict, err := uow.ConflictRepository().FindByID(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, apperror.NotFound("conflict not found")
	}
	if conflict.Status == entity.ConflictStatusResolved {
		return nil, apperror.Conflict("conflict is already resolved")
	}

	resolution := entity.ConflictResolution(req.Resolution)
	now := time.Now()
	conflict.Status = entity.ConflictStatusResolved
	conflict.Resolution = &resolution
	conflict.ResolvedBy = &actor.UserId
	conflict.ResolvedAt = &now
	conflict.MergedText = nil
	if resolution == entity.ConflictResolutionMerge {
		if req.MergedText == "" {
			return nil, apperror.Validation("merged_text is required for a merge resolution")
		}
		merged := req.MergedText
		conflict.MergedText = &merged
	}

	ok, err := uow.ConflictRepository().Resolve(ctx, conflict)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Conflict("conflict is already resolved")
	}

	res := dto.NewConflictResponse(conflict)
	if draft, err := uow.DraftRepository().FindByID(ctx, conflict.DraftId); err == nil && draft != nil {
		s.notify.toRoom(ctx, "", websocket.InterviewRoom(draft.InterviewId), dto.EventConflictResolved, dto.ConflictResolvedPayload{
			ConflictId: conflictID.String(),
			DraftId:    conflict.DraftId.String(),
			Resolution: req.Resolution,
		})
	}
	return res, nil
}

// startRegeneration registers the draft job and marks the latest version as
// generating. The returned message is ready to run.
func (s *draftService) startRegeneration(ctx context.Context, interviewID uuid.UUID) (correlator.Job, dto.DispatchMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	iv, err := uow.InterviewRepository().FindByID(ctx, interviewID)
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}
	if iv == nil {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.NotFound("interview not found")
	}
	if iv.Status != entity.InterviewStatusCompleted || iv.Transcript == nil {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.PreconditionFailed("only a completed interview can regenerate its draft")
	}

	latest, err := uow.DraftRepository().FindLatest(ctx, interviewID)
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}
	if latest == nil {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.PreconditionFailed("interview has no draft to regenerate")
	}

	job, err := s.correlator.Register(ctx, correlator.Key{SubjectID: interviewID, Stage: string(entity.StageDraft)})
	if errors.Is(err, correlator.ErrActiveJob) {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.Conflict("a draft job is already running for this interview")
	}
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}

	if err := uow.DraftRepository().SetGeneration(ctx, latest.Id, entity.GenerationStatusGenerating, ""); err != nil {
		abortJob(ctx, s.correlator, job, s.logger, "Draft")
		return correlator.Job{}, dto.DispatchMessage{}, err
	}

	s.logger.Info("Draft", "Draft regeneration started", map[string]interface{}{
		"interview_id": interviewID, "from_version": latest.Version, "token": job.Token, "attempt": job.Attempt,
	})
	return job, dto.DispatchMessage{
		Stage:      entity.StageDraft,
		SubjectId:  interviewID,
		Transcript: *iv.Transcript,
	}, nil
}

func (s *draftService) RegenerateAsync(ctx context.Context, interviewID uuid.UUID) (*dto.JobAcknowledgement, error) {
	job, msg, err := s.startRegeneration(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if err := s.runner.dispatch(ctx, job, msg); err != nil {
		return nil, err
	}
	return &dto.JobAcknowledgement{
		SubjectId: interviewID,
		JobToken:  job.Token,
		Stage:     string(entity.StageDraft),
		Attempt:   job.Attempt,
		Status:    string(entity.GenerationStatusGenerating),
		Room:      websocket.InterviewRoom(interviewID).String(),
	}, nil
}

func (s *draftService) RegenerateSync(ctx context.Context, interviewID uuid.UUID) (*dto.DraftResponse, error) {
	job, msg, err := s.startRegeneration(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if err := s.runner.runInline(ctx, job, msg); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	latest, err := uow.DraftRepository().FindLatest(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, apperror.NotFound("draft not found")
	}
	return dto.NewDraftResponse(latest), nil
}
