package service

import (
	"context"
	"errors"

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

type ILifeStoryService interface {
	GenerateAsync(ctx context.Context, sessionID uuid.UUID) (*dto.JobAcknowledgement, error)
	GenerateSync(ctx context.Context, sessionID uuid.UUID) (*dto.LifeStoryResponse, error)
	List(ctx context.Context, actor dto.Actor, sessionID uuid.UUID) ([]*dto.LifeStoryResponse, error)
	Transition(ctx context.Context, actor dto.Actor, storyID uuid.UUID, req *dto.TransitionRequest) (*dto.LifeStoryResponse, error)
}

type lifeStoryService struct {
	uowFactory unitofwork.RepositoryFactory
	correlator *correlator.Correlator
	runner     *StageRunner
	notify     *notifier
	logger     logger.ILogger
}

func NewLifeStoryService(
	uowFactory unitofwork.RepositoryFactory,
	corr *correlator.Correlator,
	runner *StageRunner,
	broadcaster Broadcaster,
	publisher events.Publisher,
	log logger.ILogger,
) ILifeStoryService {
	return &lifeStoryService{
		uowFactory: uowFactory,
		correlator: corr,
		runner:     runner,
		notify:     newNotifier(broadcaster, publisher, log),
		logger:     log,
	}
}

// startGeneration checks the approved-draft precondition, claims the
// session's story slot and records the new version as generating.
func (s *lifeStoryService) startGeneration(ctx context.Context, sessionID uuid.UUID) (correlator.Job, dto.DispatchMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindByID(ctx, sessionID)
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}
	if session == nil {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.NotFound("session not found")
	}

	approved, err := uow.DraftRepository().FindApprovedBySessionID(ctx, sessionID)
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}
	if len(approved) == 0 {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.PreconditionFailed("at least one approved draft is required to generate a life story")
	}

	job, err := s.correlator.Register(ctx, correlator.Key{SubjectID: sessionID, Stage: string(entity.StageLifeStory)})
	if errors.Is(err, correlator.ErrActiveJob) {
		return correlator.Job{}, dto.DispatchMessage{}, apperror.Conflict("a life story is already being generated for this session")
	}
	if err != nil {
		return correlator.Job{}, dto.DispatchMessage{}, err
	}

	latest, err := uow.LifeStoryRepository().FindLatest(ctx, sessionID)
	if err != nil {
		abortJob(ctx, s.correlator, job, s.logger, "LifeStory")
		return correlator.Job{}, dto.DispatchMessage{}, err
	}
	version := 1
	if latest != nil {
		version = latest.Version + 1
	}

	msg := dto.DispatchMessage{Stage: entity.StageLifeStory, SubjectId: sessionID}
	sources := make([]uuid.UUID, 0, len(approved))
	for _, d := range approved {
		sources = append(sources, d.Id)
		msg.Drafts = append(msg.Drafts, d.Content)
	}

	story := &entity.FullLifeStory{
		SessionId:        sessionID,
		Version:          version,
		Status:           entity.LifeStoryStatusDraft,
		SourceDraftIds:   sources,
		GenerationStatus: entity.GenerationStatusGenerating,
	}
	if err := uow.LifeStoryRepository().Create(ctx, story); err != nil {
		abortJob(ctx, s.correlator, job, s.logger, "LifeStory")
		return correlator.Job{}, dto.DispatchMessage{}, err
	}

	s.logger.Info("LifeStory", "Life story generation started", map[string]interface{}{
		"session_id": sessionID, "version": version, "drafts": len(sources), "token": job.Token,
	})

	return job, msg, nil
}

func (s *lifeStoryService) GenerateAsync(ctx context.Context, sessionID uuid.UUID) (*dto.JobAcknowledgement, error) {
	job, msg, err := s.startGeneration(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.runner.dispatch(ctx, job, msg); err != nil {
		return nil, err
	}
	return &dto.JobAcknowledgement{
		SubjectId: sessionID,
		JobToken:  job.Token,
		Stage:     string(entity.StageLifeStory),
		Attempt:   job.Attempt,
		Status:    string(entity.GenerationStatusGenerating),
		Room:      websocket.SessionRoom(sessionID).String(),
	}, nil
}

func (s *lifeStoryService) GenerateSync(ctx context.Context, sessionID uuid.UUID) (*dto.LifeStoryResponse, error) {
	job, msg, err := s.startGeneration(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.runner.runInline(ctx, job, msg); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	story, err := uow.LifeStoryRepository().FindLatest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, apperror.NotFound("life story not found")
	}
	return dto.NewLifeStoryResponse(story), nil
}

func (s *lifeStoryService) List(ctx context.Context, actor dto.Actor, sessionID uuid.UUID) ([]*dto.LifeStoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := sessionFor(ctx, uow, actor, sessionID); err != nil {
		return nil, err
	}
	stories, err := uow.LifeStoryRepository().FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.LifeStoryResponse, 0, len(stories))
	for _, st := range stories {
		res = append(res, dto.NewLifeStoryResponse(st))
	}
	return res, nil
}

func (s *lifeStoryService) Transition(ctx context.Context, actor dto.Actor, storyID uuid.UUID, req *dto.TransitionRequest) (*dto.LifeStoryResponse, error) {
	target := entity.LifeStoryStatus(req.Status)
	if !lifecycle.ValidLifeStoryStatus(target) {
		return nil, apperror.Validation("unknown life story status " + req.Status)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	story, err := uow.LifeStoryRepository().FindByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, apperror.NotFound("life story not found")
	}
	if story.GenerationStatus != entity.GenerationStatusReady {
		return nil, apperror.PreconditionFailed("life story has no generated content")
	}
	if err := lifecycle.CheckLifeStory(story.Status, target); err != nil {
		return nil, apperror.Conflict(err.Error())
	}

	ok, err := uow.LifeStoryRepository().TransitionStatus(ctx, storyID, []entity.LifeStoryStatus{story.Status}, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Conflict("life story status changed concurrently")
	}

	previous := story.Status
	if story, err = uow.LifeStoryRepository().FindByID(ctx, storyID); err != nil {
		return nil, err
	}

	s.logger.Info("LifeStory", "Life story status changed", map[string]interface{}{
		"story_id": storyID, "from": previous, "to": target, "by": actor.UserId,
	})
	res := dto.NewLifeStoryResponse(story)
	s.notify.toRoom(ctx, "", websocket.SessionRoom(story.SessionId), dto.EventLifeStoryStatusChanged, res)
	s.notify.domain(ctx, events.LifeStoryStatusChanged, map[string]interface{}{
		"story_id": storyID.String(), "session_id": story.SessionId.String(), "from": string(previous), "to": string(target),
	})
	return res, nil
}
