package service

import (
	"context"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/lifecycle"

	"github.com/google/uuid"
)

// interviewStages are the job slots keyed by interview id.
var interviewStages = []entity.Stage{entity.StageTranscription, entity.StageDraft}

// failLostTranscription times out an interview that has sat in Processing
// for longer than the job ceiling with no transcription job to settle it,
// as happens when the job store is lost on restart. It reports whether the
// interview was failed.
func failLostTranscription(ctx context.Context, corr *correlator.Correlator, lc ILifecycleService, iv *entity.Interview) (bool, error) {
	if iv.Status != entity.InterviewStatusProcessing {
		return false, nil
	}
	key := correlator.Key{SubjectID: iv.Id, Stage: string(entity.StageTranscription)}
	active, err := corr.IsActive(ctx, key)
	if err != nil || active || !corr.Overdue(iv.UpdatedAt) {
		return false, err
	}

	job := correlator.Job{Token: "lost_" + uuid.NewString(), Key: key, Deadline: iv.UpdatedAt.Add(corr.Timeout())}
	return lc.Fail(ctx, job, entity.FailureReasonTimeout, "job lost")
}

type IInterviewService interface {
	Start(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.InterviewResponse, error)
	Status(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.InterviewStatusResponse, error)
	// Delete removes the interview with its drafts. It refuses while a job is in flight.
	Delete(ctx context.Context, id uuid.UUID) error
}

type interviewService struct {
	uowFactory unitofwork.RepositoryFactory
	correlator *correlator.Correlator
	lifecycle  ILifecycleService
	notify     *notifier
	logger     logger.ILogger
}

func NewInterviewService(
	uowFactory unitofwork.RepositoryFactory,
	corr *correlator.Correlator,
	lifecycle ILifecycleService,
	broadcaster Broadcaster,
	log logger.ILogger,
) IInterviewService {
	return &interviewService{
		uowFactory: uowFactory,
		correlator: corr,
		lifecycle:  lifecycle,
		notify:     newNotifier(broadcaster, nil, log),
		logger:     log,
	}
}

func (s *interviewService) Start(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.InterviewResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	iv, err := interviewFor(ctx, uow, actor, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckInterview(iv.Status, entity.InterviewStatusInProgress); err != nil {
		return nil, apperror.PreconditionFailed(err.Error())
	}

	ok, err := uow.InterviewRepository().TransitionStatus(ctx, id,
		lifecycle.InterviewSourcesFor(entity.InterviewStatusInProgress),
		entity.InterviewUpdate{Status: entity.InterviewStatusInProgress, At: time.Now()})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Conflict("interview was started concurrently")
	}

	iv, err = uow.InterviewRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notify.toRoom(ctx, "", websocket.InterviewRoom(id), dto.EventInterviewStatusChanged, dto.InterviewStatusPayload{
		InterviewId: id.String(),
		SessionId:   iv.SessionId.String(),
		Status:      string(iv.Status),
	})
	if err := s.lifecycle.AdvanceSession(ctx, iv.SessionId); err != nil {
		s.logger.Warn("Interview", "Session status not advanced", map[string]interface{}{"error": err.Error(), "session_id": iv.SessionId})
	}

	return dto.NewInterviewResponse(iv), nil
}

func (s *interviewService) Status(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.InterviewStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Overdue jobs are expired before the interview is read, so a poll
	// never reports Processing for a job that has already timed out.
	active := make([]string, 0, len(interviewStages))
	for _, stage := range interviewStages {
		ok, err := s.correlator.IsActive(ctx, correlator.Key{SubjectID: id, Stage: string(stage)})
		if err != nil {
			return nil, err
		}
		if ok {
			active = append(active, string(stage))
		}
	}

	iv, err := interviewFor(ctx, uow, actor, id)
	if err != nil {
		return nil, err
	}
	failed, err := failLostTranscription(ctx, s.correlator, s.lifecycle, iv)
	if err != nil {
		return nil, err
	}
	if failed {
		if iv, err = interviewFor(ctx, uow, actor, id); err != nil {
			return nil, err
		}
	}

	res := &dto.InterviewStatusResponse{
		InterviewId:  iv.Id,
		Status:       string(iv.Status),
		ActiveStages: active,
		UpdatedAt:    iv.UpdatedAt,
	}
	if iv.Status == entity.InterviewStatusFailed {
		res.FailureReason = string(iv.FailureReason)
		res.Error = iv.ErrorDetail
	}
	return res, nil
}

func (s *interviewService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	iv, err := uow.InterviewRepository().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if iv == nil {
		return apperror.NotFound("interview not found")
	}

	for _, stage := range interviewStages {
		active, err := s.correlator.IsActive(ctx, correlator.Key{SubjectID: id, Stage: string(stage)})
		if err != nil {
			return err
		}
		if active {
			return apperror.Conflict("interview has a " + string(stage) + " job in flight")
		}
	}

	if err := uow.InterviewRepository().Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Interview", "Interview deleted", map[string]interface{}{"interview_id": id, "session_id": iv.SessionId})
	return nil
}
