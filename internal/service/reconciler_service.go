package service

import (
	"context"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/pkg/correlator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// IReconcilerService applies pipeline callbacks. Re-delivery of a callback
// that was already applied is a no-op.
type IReconcilerService interface {
	Handle(ctx context.Context, cb dto.StageCallback) (*dto.WebhookResponse, error)
}

type reconcilerService struct {
	uowFactory unitofwork.RepositoryFactory
	correlator *correlator.Correlator
	lifecycle  ILifecycleService
	logger     logger.ILogger
}

func NewReconcilerService(
	uowFactory unitofwork.RepositoryFactory,
	corr *correlator.Correlator,
	lifecycle ILifecycleService,
	log logger.ILogger,
) IReconcilerService {
	return &reconcilerService{
		uowFactory: uowFactory,
		correlator: corr,
		lifecycle:  lifecycle,
		logger:     log,
	}
}

func (s *reconcilerService) Handle(ctx context.Context, cb dto.StageCallback) (*dto.WebhookResponse, error) {
	stage := cb.Stage()
	subjectID := cb.SubjectID()

	ctx, span := otel.Tracer("reconciler").Start(ctx, "webhook."+string(stage))
	defer span.End()
	span.SetAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("subject_id", subjectID.String()),
	)

	outcome, err := s.reconcile(ctx, stage, subjectID, cb)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	return &dto.WebhookResponse{Outcome: outcome, Stage: string(stage)}, nil
}

func (s *reconcilerService) reconcile(ctx context.Context, stage entity.Stage, subjectID uuid.UUID, cb dto.StageCallback) (dto.WebhookOutcome, error) {
	details := map[string]interface{}{"stage": stage, "subject_id": subjectID}

	exists, err := s.subjectExists(ctx, stage, subjectID)
	if err != nil {
		return "", err
	}
	if !exists {
		s.logger.Info("Reconciler", "Callback for unknown subject ignored", details)
		return dto.OutcomeUnknownSubject, nil
	}

	job, err := s.correlator.Lookup(ctx, correlator.Key{SubjectID: subjectID, Stage: string(stage)})
	if err != nil {
		return "", err
	}
	if job == nil {
		s.logger.Info("Reconciler", "Callback without an active job ignored", details)
		return dto.OutcomeNoActiveJob, nil
	}
	details["token"] = job.Token

	if token := cb.Token(); token != "" && token != job.Token {
		details["callback_token"] = token
		s.logger.Info("Reconciler", "Callback for a superseded job ignored", details)
		return dto.OutcomeStaleToken, nil
	}

	res := cb.Result()
	outcome := correlator.OutcomeSucceeded
	if !res.Success {
		outcome = correlator.OutcomeFailed
	}

	// Claiming the token first makes this the only writer for the job.
	claimed, err := s.correlator.Complete(ctx, job.Token, outcome)
	if err != nil {
		return "", err
	}
	if !claimed {
		s.logger.Info("Reconciler", "Job settled concurrently, callback ignored", details)
		return dto.OutcomeNoActiveJob, nil
	}

	applied, err := s.lifecycle.Apply(ctx, *job, res)
	if err != nil {
		// The pipeline redelivers on the error response and finds the job again.
		reinstate(ctx, s.correlator, *job, s.logger, "Reconciler")
		return "", err
	}
	if !applied {
		s.logger.Warn("Reconciler", "Subject no longer awaits this stage", details)
		return dto.OutcomeStateMismatch, nil
	}

	details["success"] = res.Success
	s.logger.Info("Reconciler", "Callback applied", details)
	return dto.OutcomeApplied, nil
}

func (s *reconcilerService) subjectExists(ctx context.Context, stage entity.Stage, id uuid.UUID) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if stage.SessionScoped() {
		session, err := uow.SessionRepository().FindByID(ctx, id)
		return session != nil, err
	}
	iv, err := uow.InterviewRepository().FindByID(ctx, id)
	return iv != nil, err
}
