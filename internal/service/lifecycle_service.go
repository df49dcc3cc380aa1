package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"
	"lifestory-be/pkg/lifecycle"

	"github.com/google/uuid"
)

// ILifecycleService applies pipeline outcomes to the durable records. Every
// method assumes the caller has already claimed the job's token, so at most
// one of them runs per job.
type ILifecycleService interface {
	// Apply writes a stage result. It reports false when the subject is no
	// longer waiting for this stage.
	Apply(ctx context.Context, job correlator.Job, res dto.StageResult) (bool, error)
	Fail(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) (bool, error)
	// Expired is the correlator's expiry handler.
	Expired(ctx context.Context, job correlator.Job) error
	// AdvanceSession moves a session forward to the status its interviews
	// and life stories imply.
	AdvanceSession(ctx context.Context, sessionID uuid.UUID) error
}

type lifecycleService struct {
	uowFactory unitofwork.RepositoryFactory
	notify     *notifier
	logger     logger.ILogger
	now        func() time.Time
}

func NewLifecycleService(
	uowFactory unitofwork.RepositoryFactory,
	broadcaster Broadcaster,
	publisher events.Publisher,
	log logger.ILogger,
) ILifecycleService {
	return &lifecycleService{
		uowFactory: uowFactory,
		notify:     newNotifier(broadcaster, publisher, log),
		logger:     log,
		now:        time.Now,
	}
}

func (s *lifecycleService) Apply(ctx context.Context, job correlator.Job, res dto.StageResult) (bool, error) {
	if !res.Success {
		return s.Fail(ctx, job, entity.FailureReasonPipeline, res.Error)
	}

	switch entity.Stage(job.Key.Stage) {
	case entity.StageTranscription:
		return s.completeTranscription(ctx, job, res)
	case entity.StageDraft:
		return s.completeDraft(ctx, job, res)
	case entity.StageLifeStory:
		return s.completeLifeStory(ctx, job, res)
	}
	return false, fmt.Errorf("unknown stage %q", job.Key.Stage)
}

func (s *lifecycleService) Fail(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) (bool, error) {
	if detail == "" {
		detail = string(reason)
	}

	switch entity.Stage(job.Key.Stage) {
	case entity.StageTranscription:
		return s.failTranscription(ctx, job, reason, detail)
	case entity.StageDraft:
		return s.failDraft(ctx, job, reason, detail)
	case entity.StageLifeStory:
		return s.failLifeStory(ctx, job, reason, detail)
	}
	return false, fmt.Errorf("unknown stage %q", job.Key.Stage)
}

func (s *lifecycleService) Expired(ctx context.Context, job correlator.Job) error {
	applied, err := s.Fail(ctx, job, entity.FailureReasonTimeout, "job exceeded the processing ceiling")
	if err != nil {
		s.logger.Error("Lifecycle", "Failed to record timeout", map[string]interface{}{
			"error": err.Error(), "token": job.Token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage,
		})
		return err
	}
	if !applied {
		s.logger.Info("Lifecycle", "Expired job had nothing left to fail", map[string]interface{}{
			"token": job.Token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage,
		})
	}
	return nil
}

func (s *lifecycleService) completeTranscription(ctx context.Context, job correlator.Job, res dto.StageResult) (bool, error) {
	interviewID := job.Key.SubjectID
	transcript := res.Transcript

	content := res.Content
	if len(content) == 0 {
		content, _ = json.Marshal(map[string]string{"transcript": transcript})
	}

	var (
		applied bool
		iv      *entity.Interview
		draft   *entity.Draft
	)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := unitofwork.InTransaction(ctx, uow, func(tx unitofwork.UnitOfWork) error {
		ok, err := tx.InterviewRepository().TransitionStatus(ctx, interviewID,
			lifecycle.InterviewSourcesFor(entity.InterviewStatusCompleted),
			entity.InterviewUpdate{
				Status:        entity.InterviewStatusCompleted,
				Transcript:    &transcript,
				QualityScores: res.QualityScores,
				At:            s.now(),
			})
		if err != nil || !ok {
			return err
		}
		applied = true

		latest, err := tx.DraftRepository().FindLatest(ctx, interviewID)
		if err != nil {
			return err
		}
		version := 1
		if latest != nil {
			version = latest.Version + 1
		}

		draft = &entity.Draft{
			InterviewId:      interviewID,
			Version:          version,
			Status:           entity.DraftStatusInternalReview,
			Content:          content,
			GenerationStatus: entity.GenerationStatusReady,
		}
		if err := tx.DraftRepository().Create(ctx, draft); err != nil {
			return err
		}
		if err := s.createConflicts(ctx, tx, draft.Id, res.Conflicts); err != nil {
			return err
		}

		iv, err = tx.InterviewRepository().FindByID(ctx, interviewID)
		return err
	})
	if err != nil || !applied {
		return false, err
	}

	s.logger.Info("Lifecycle", "Interview completed", map[string]interface{}{
		"interview_id": interviewID, "draft_id": draft.Id, "draft_version": draft.Version, "token": job.Token,
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventInterviewStatusChanged), websocket.InterviewRoom(interviewID),
		dto.EventInterviewStatusChanged, dto.InterviewStatusPayload{
			InterviewId:  interviewID.String(),
			SessionId:    iv.SessionId.String(),
			Status:       string(iv.Status),
			Stage:        job.Key.Stage,
			DraftVersion: draft.Version,
		})
	s.notify.domain(ctx, events.InterviewCompleted, map[string]interface{}{
		"interview_id": interviewID.String(), "session_id": iv.SessionId.String(),
	})
	s.notify.domain(ctx, events.DraftCreated, map[string]interface{}{
		"interview_id": interviewID.String(), "draft_id": draft.Id.String(), "version": draft.Version,
	})

	if err := s.AdvanceSession(ctx, iv.SessionId); err != nil {
		s.logger.Warn("Lifecycle", "Session status not advanced", map[string]interface{}{"error": err.Error(), "session_id": iv.SessionId})
	}
	return true, nil
}

func (s *lifecycleService) failTranscription(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) (bool, error) {
	interviewID := job.Key.SubjectID
	uow := s.uowFactory.NewUnitOfWork(ctx)

	ok, err := uow.InterviewRepository().TransitionStatus(ctx, interviewID,
		lifecycle.InterviewSourcesFor(entity.InterviewStatusFailed),
		entity.InterviewUpdate{
			Status:        entity.InterviewStatusFailed,
			FailureReason: reason,
			ErrorDetail:   detail,
			At:            s.now(),
		})
	if err != nil || !ok {
		return false, err
	}

	// A failed read only drops the session id from the event.
	sessionID := ""
	if iv, err := uow.InterviewRepository().FindByID(ctx, interviewID); err == nil && iv != nil {
		sessionID = iv.SessionId.String()
	}

	s.logger.Warn("Lifecycle", "Interview failed", map[string]interface{}{
		"interview_id": interviewID, "reason": reason, "error": detail, "token": job.Token,
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventInterviewStatusChanged), websocket.InterviewRoom(interviewID),
		dto.EventInterviewStatusChanged, dto.InterviewStatusPayload{
			InterviewId:   interviewID.String(),
			SessionId:     sessionID,
			Status:        string(entity.InterviewStatusFailed),
			FailureReason: string(reason),
			Error:         detail,
			Stage:         job.Key.Stage,
		})
	s.notify.domain(ctx, events.InterviewFailed, map[string]interface{}{
		"interview_id": interviewID.String(), "reason": string(reason), "error": detail,
	})
	return true, nil
}

func (s *lifecycleService) completeDraft(ctx context.Context, job correlator.Job, res dto.StageResult) (bool, error) {
	interviewID := job.Key.SubjectID

	content := res.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	var draft *entity.Draft
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := unitofwork.InTransaction(ctx, uow, func(tx unitofwork.UnitOfWork) error {
		latest, err := tx.DraftRepository().FindLatest(ctx, interviewID)
		if err != nil {
			return err
		}
		if latest == nil || latest.GenerationStatus != entity.GenerationStatusGenerating {
			return nil
		}

		// The superseded version keeps its content; only its marker clears.
		if err := tx.DraftRepository().SetGeneration(ctx, latest.Id, entity.GenerationStatusReady, ""); err != nil {
			return err
		}

		draft = &entity.Draft{
			InterviewId:      interviewID,
			Version:          latest.Version + 1,
			Status:           entity.DraftStatusInternalReview,
			Content:          content,
			GenerationStatus: entity.GenerationStatusReady,
		}
		if err := tx.DraftRepository().Create(ctx, draft); err != nil {
			return err
		}
		return s.createConflicts(ctx, tx, draft.Id, res.Conflicts)
	})
	if err != nil || draft == nil {
		return false, err
	}

	s.logger.Info("Lifecycle", "Draft regenerated", map[string]interface{}{
		"interview_id": interviewID, "draft_id": draft.Id, "version": draft.Version, "conflicts": len(res.Conflicts),
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventDraftGenerated), websocket.InterviewRoom(interviewID),
		dto.EventDraftGenerated, dto.NewDraftResponse(draft))
	s.notify.domain(ctx, events.DraftCreated, map[string]interface{}{
		"interview_id": interviewID.String(), "draft_id": draft.Id.String(), "version": draft.Version,
	})
	return true, nil
}

func (s *lifecycleService) failDraft(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) (bool, error) {
	interviewID := job.Key.SubjectID
	uow := s.uowFactory.NewUnitOfWork(ctx)

	latest, err := uow.DraftRepository().FindLatest(ctx, interviewID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.GenerationStatus != entity.GenerationStatusGenerating {
		return false, nil
	}
	if err := uow.DraftRepository().SetGeneration(ctx, latest.Id, entity.GenerationStatusFailed, detail); err != nil {
		return false, err
	}

	s.logger.Warn("Lifecycle", "Draft generation failed", map[string]interface{}{
		"interview_id": interviewID, "draft_id": latest.Id, "reason": reason, "error": detail, "token": job.Token,
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventDraftGenerationFailed), websocket.InterviewRoom(interviewID),
		dto.EventDraftGenerationFailed, dto.GenerationFailedPayload{
			SubjectId: interviewID.String(),
			Stage:     job.Key.Stage,
			Reason:    string(reason),
			Error:     detail,
			TargetId:  latest.Id.String(),
			Version:   latest.Version,
		})
	s.notify.domain(ctx, events.DraftGenerationFailed, map[string]interface{}{
		"interview_id": interviewID.String(), "draft_id": latest.Id.String(), "reason": string(reason), "error": detail,
	})
	return true, nil
}

func (s *lifecycleService) completeLifeStory(ctx context.Context, job correlator.Job, res dto.StageResult) (bool, error) {
	sessionID := job.Key.SubjectID

	content := res.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	var story *entity.FullLifeStory
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := unitofwork.InTransaction(ctx, uow, func(tx unitofwork.UnitOfWork) error {
		latest, err := tx.LifeStoryRepository().FindLatest(ctx, sessionID)
		if err != nil {
			return err
		}
		if latest == nil || latest.GenerationStatus != entity.GenerationStatusGenerating {
			return nil
		}
		if err := tx.LifeStoryRepository().CompleteGeneration(ctx, latest.Id, content); err != nil {
			return err
		}
		story, err = tx.LifeStoryRepository().FindByID(ctx, latest.Id)
		return err
	})
	if err != nil || story == nil {
		return false, err
	}

	s.logger.Info("Lifecycle", "Life story generated", map[string]interface{}{
		"session_id": sessionID, "story_id": story.Id, "version": story.Version,
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventLifeStoryGenerated), websocket.SessionRoom(sessionID),
		dto.EventLifeStoryGenerated, dto.NewLifeStoryResponse(story))
	s.notify.domain(ctx, events.LifeStoryCreated, map[string]interface{}{
		"session_id": sessionID.String(), "story_id": story.Id.String(), "version": story.Version,
	})

	if err := s.AdvanceSession(ctx, sessionID); err != nil {
		s.logger.Warn("Lifecycle", "Session status not advanced", map[string]interface{}{"error": err.Error(), "session_id": sessionID})
	}
	return true, nil
}

func (s *lifecycleService) failLifeStory(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) (bool, error) {
	sessionID := job.Key.SubjectID
	uow := s.uowFactory.NewUnitOfWork(ctx)

	latest, err := uow.LifeStoryRepository().FindLatest(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.GenerationStatus != entity.GenerationStatusGenerating {
		return false, nil
	}
	if err := uow.LifeStoryRepository().SetGeneration(ctx, latest.Id, entity.GenerationStatusFailed, detail); err != nil {
		return false, err
	}

	s.logger.Warn("Lifecycle", "Life story generation failed", map[string]interface{}{
		"session_id": sessionID, "story_id": latest.Id, "reason": reason, "error": detail, "token": job.Token,
	})

	s.notify.toRoom(ctx, jobEventID(job, dto.EventLifeStoryFailed), websocket.SessionRoom(sessionID),
		dto.EventLifeStoryFailed, dto.GenerationFailedPayload{
			SubjectId: sessionID.String(),
			Stage:     job.Key.Stage,
			Reason:    string(reason),
			Error:     detail,
			TargetId:  latest.Id.String(),
			Version:   latest.Version,
		})
	s.notify.domain(ctx, events.LifeStoryFailed, map[string]interface{}{
		"session_id": sessionID.String(), "story_id": latest.Id.String(), "reason": string(reason), "error": detail,
	})
	return true, nil
}

func (s *lifecycleService) createConflicts(ctx context.Context, tx unitofwork.UnitOfWork, draftID uuid.UUID, flags []dto.ConflictFlag) error {
	if len(flags) == 0 {
		return nil
	}
	conflicts := make([]*entity.Conflict, 0, len(flags))
	for _, f := range flags {
		conflicts = append(conflicts, &entity.Conflict{
			DraftId:    draftID,
			Topic:      f.Topic,
			StatementA: f.StatementA,
			StatementB: f.StatementB,
			Status:     entity.ConflictStatusOpen,
		})
	}
	return tx.ConflictRepository().CreateBulk(ctx, conflicts)
}

func (s *lifecycleService) AdvanceSession(ctx context.Context, sessionID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindByID(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	interviews, err := uow.InterviewRepository().FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	stories, err := uow.LifeStoryRepository().FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	hasStory := false
	for _, st := range stories {
		if st.GenerationStatus == entity.GenerationStatusReady {
			hasStory = true
			break
		}
	}

	target := lifecycle.DeriveSessionStatus(session.Status, interviews, hasStory)
	if target == session.Status {
		return nil
	}

	ok, err := uow.SessionRepository().UpdateStatusFrom(ctx, sessionID, session.Status, target)
	if err != nil || !ok {
		return err
	}

	s.logger.Info("Lifecycle", "Session advanced", map[string]interface{}{
		"session_id": sessionID, "from": session.Status, "to": target,
	})
	s.notify.toRoom(ctx, "", websocket.SessionRoom(sessionID), dto.EventSessionStatusChanged, dto.SessionStatusPayload{
		SessionId: sessionID.String(),
		Status:    string(target),
		Previous:  string(session.Status),
	})
	s.notify.domain(ctx, events.SessionStatusChanged, map[string]interface{}{
		"session_id": sessionID.String(), "from": string(session.Status), "to": string(target),
	})
	return nil
}
