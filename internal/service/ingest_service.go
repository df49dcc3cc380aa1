package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/storage"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/lifecycle"
)

type IIngestService interface {
	// UploadSync transcribes inline and returns the settled interview.
	UploadSync(ctx context.Context, actor dto.Actor, req *dto.UploadRequest) (*dto.InterviewResponse, error)
	// UploadAsync queues the transcription and returns at once.
	UploadAsync(ctx context.Context, actor dto.Actor, req *dto.UploadRequest) (*dto.JobAcknowledgement, error)
}

type IngestLimits struct {
	MaxBytes     int64
	AllowedTypes []string
}

type ingestService struct {
	uowFactory unitofwork.RepositoryFactory
	correlator *correlator.Correlator
	lifecycle  ILifecycleService
	runner     *StageRunner
	files      *storage.FileStore
	limits     IngestLimits
	logger     logger.ILogger
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	corr *correlator.Correlator,
	runner *StageRunner,
	files *storage.FileStore,
	limits IngestLimits,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		uowFactory: uowFactory,
		correlator: corr,
		lifecycle:  runner.lifecycle,
		runner:     runner,
		files:      files,
		limits:     limits,
		logger:     log,
	}
}

// accepted is an upload that passed validation, holds the transcription
// slot and has moved its interview to Processing.
type accepted struct {
	job       correlator.Job
	interview *entity.Interview
	sourceRef string
	mimeType  string
}

func (s *ingestService) UploadSync(ctx context.Context, actor dto.Actor, req *dto.UploadRequest) (*dto.InterviewResponse, error) {
	acc, err := s.accept(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	runErr := s.runner.runInline(ctx, acc.job, s.dispatchMessage(acc))

	// The interview is read back on both paths; a failure is recorded on it.
	uow := s.uowFactory.NewUnitOfWork(context.WithoutCancel(ctx))
	iv, err := uow.InterviewRepository().FindByID(context.WithoutCancel(ctx), acc.interview.Id)
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}
	if iv == nil {
		return nil, apperror.NotFound("interview was deleted while processing")
	}
	return dto.NewInterviewResponse(iv), nil
}

func (s *ingestService) UploadAsync(ctx context.Context, actor dto.Actor, req *dto.UploadRequest) (*dto.JobAcknowledgement, error) {
	acc, err := s.accept(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	if err := s.runner.dispatch(ctx, acc.job, s.dispatchMessage(acc)); err != nil {
		return nil, err
	}

	s.logger.Info("Ingest", "Transcription queued", map[string]interface{}{
		"interview_id": acc.interview.Id, "token": acc.job.Token, "attempt": acc.job.Attempt, "mime": acc.mimeType,
	})

	return &dto.JobAcknowledgement{
		SubjectId: acc.interview.Id,
		JobToken:  acc.job.Token,
		Stage:     string(entity.StageTranscription),
		Attempt:   acc.job.Attempt,
		Status:    string(entity.InterviewStatusProcessing),
		Room:      websocket.InterviewRoom(acc.interview.Id).String(),
	}, nil
}

func (s *ingestService) dispatchMessage(acc *accepted) dto.DispatchMessage {
	return dto.DispatchMessage{
		Stage:     entity.StageTranscription,
		SubjectId: acc.interview.Id,
		SourceRef: acc.sourceRef,
		MimeType:  acc.mimeType,
	}
}

func (s *ingestService) accept(ctx context.Context, actor dto.Actor, req *dto.UploadRequest) (*accepted, error) {
	if req.Size > s.limits.MaxBytes || int64(len(req.Data)) > s.limits.MaxBytes {
		return nil, apperror.PayloadTooLarge(fmt.Sprintf("file exceeds the %d byte limit", s.limits.MaxBytes))
	}
	if len(req.Data) == 0 {
		return nil, apperror.Validation("file is empty")
	}

	sniffed := storage.Sniff(req.Data, s.limits.AllowedTypes)
	if !sniffed.Allowed {
		return nil, apperror.UnsupportedMedia("unsupported file type " + sniffed.MimeType)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	iv, err := interviewFor(ctx, uow, actor, req.InterviewId)
	if err != nil {
		return nil, err
	}
	key := correlator.Key{SubjectID: iv.Id, Stage: string(entity.StageTranscription)}
	if iv.Status == entity.InterviewStatusProcessing {
		// An overdue job expires on lookup, and a lost one is timed out here;
		// either way the interview is failed and may take the retry.
		if _, err := failLostTranscription(ctx, s.correlator, s.lifecycle, iv); err != nil {
			return nil, err
		}
		if iv, err = interviewFor(ctx, uow, actor, req.InterviewId); err != nil {
			return nil, err
		}
	}
	if err := checkUploadable(iv); err != nil {
		return nil, err
	}

	job, err := s.correlator.Register(ctx, key)
	if errors.Is(err, correlator.ErrActiveJob) {
		return nil, apperror.Conflict("a transcription job is already running for this interview")
	}
	if err != nil {
		return nil, err
	}

	path, err := s.files.Save(bytes.NewReader(req.Data), sniffed.Extension)
	if err != nil {
		abortJob(ctx, s.correlator, job, s.logger, "Ingest")
		return nil, apperror.Internal("failed to store upload", err)
	}

	ok, err := uow.InterviewRepository().TransitionStatus(ctx, iv.Id,
		lifecycle.InterviewSourcesFor(entity.InterviewStatusProcessing),
		entity.InterviewUpdate{
			Status:   entity.InterviewStatusProcessing,
			AudioRef: &path,
			At:       time.Now(),
		})
	if err != nil || !ok {
		abortJob(ctx, s.correlator, job, s.logger, "Ingest")
		_ = s.files.Remove(path)
		if err != nil {
			return nil, err
		}
		return nil, apperror.Conflict("interview changed while the upload was being accepted")
	}

	s.logger.Info("Ingest", "Upload accepted", map[string]interface{}{
		"interview_id": iv.Id, "token": job.Token, "attempt": job.Attempt, "bytes": len(req.Data), "mime": sniffed.MimeType, "mode": req.Mode,
	})
	return &accepted{job: job, interview: iv, sourceRef: path, mimeType: sniffed.MimeType}, nil
}

func checkUploadable(iv *entity.Interview) error {
	switch iv.Status {
	case entity.InterviewStatusInProgress, entity.InterviewStatusFailed:
		return nil
	case entity.InterviewStatusScheduled:
		return apperror.PreconditionFailed("interview has not been started")
	case entity.InterviewStatusProcessing:
		return apperror.Conflict("interview is already being processed")
	case entity.InterviewStatusCompleted:
		return apperror.PreconditionFailed("interview is already completed")
	}
	return apperror.PreconditionFailed("interview cannot accept uploads in status " + string(iv.Status))
}
