package service

import (
	"context"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/events"
	"lifestory-be/pkg/lifecycle"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, actor dto.Actor, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Show(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.SessionResponse, error)
	// OverrideStatus is the admin escape hatch; it may move in any direction.
	OverrideStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateSessionStatusRequest) (*dto.SessionResponse, error)
	ScheduleInterview(ctx context.Context, actor dto.Actor, sessionID uuid.UUID, req *dto.ScheduleInterviewRequest) (*dto.InterviewResponse, error)
	// AuthorizeRoom decides realtime subscriptions.
	AuthorizeRoom(ctx context.Context, member websocket.Member, room websocket.Room) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	notify     *notifier
	logger     logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	broadcaster Broadcaster,
	publisher events.Publisher,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
		notify:     newNotifier(broadcaster, publisher, log),
		logger:     log,
	}
}

func (s *sessionService) Create(ctx context.Context, actor dto.Actor, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := &entity.Session{
		UserId:      actor.UserId,
		Title:       req.Title,
		Status:      entity.SessionStatusPending,
		ScheduledAt: req.ScheduledAt,
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Session", "Session scheduled", map[string]interface{}{"session_id": session.Id, "user_id": actor.UserId})
	return dto.NewSessionResponse(session, nil), nil
}

func (s *sessionService) Show(ctx context.Context, actor dto.Actor, id uuid.UUID) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := sessionFor(ctx, uow, actor, id)
	if err != nil {
		return nil, err
	}
	interviews, err := uow.InterviewRepository().FindBySessionID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSessionResponse(session, interviews), nil
}

func (s *sessionService) OverrideStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateSessionStatusRequest) (*dto.SessionResponse, error) {
	target := entity.SessionStatus(req.Status)
	if !lifecycle.ValidSessionStatus(target) {
		return nil, apperror.Validation("unknown session status " + req.Status)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("session not found")
	}

	previous := session.Status
	if previous != target {
		if err := uow.SessionRepository().UpdateStatus(ctx, id, target); err != nil {
			return nil, err
		}
		s.logger.Info("Session", "Session status overridden", map[string]interface{}{"session_id": id, "from": previous, "to": target})
		s.notify.toRoom(ctx, "", websocket.SessionRoom(id), dto.EventSessionStatusChanged, dto.SessionStatusPayload{
			SessionId: id.String(),
			Status:    string(target),
			Previous:  string(previous),
		})
		s.notify.domain(ctx, events.SessionStatusChanged, map[string]interface{}{
			"session_id": id.String(), "from": string(previous), "to": string(target), "override": true,
		})
	}

	return s.Show(ctx, dto.Actor{IsAdmin: true}, id)
}

func (s *sessionService) ScheduleInterview(ctx context.Context, actor dto.Actor, sessionID uuid.UUID, req *dto.ScheduleInterviewRequest) (*dto.InterviewResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := sessionFor(ctx, uow, actor, sessionID); err != nil {
		return nil, err
	}

	iv := &entity.Interview{
		SessionId: sessionID,
		Type:      entity.InterviewType(req.Type),
		Status:    entity.InterviewStatusScheduled,
	}
	if err := uow.InterviewRepository().Create(ctx, iv); err != nil {
		return nil, err
	}

	s.logger.Info("Session", "Interview scheduled", map[string]interface{}{"session_id": sessionID, "interview_id": iv.Id, "type": iv.Type})
	return dto.NewInterviewResponse(iv), nil
}

func (s *sessionService) AuthorizeRoom(ctx context.Context, member websocket.Member, room websocket.Room) error {
	actor := dto.Actor{UserId: member.UserID, IsAdmin: member.IsAdmin}
	uow := s.uowFactory.NewUnitOfWork(ctx)

	switch room.Kind {
	case websocket.RoomInterview:
		_, err := interviewFor(ctx, uow, actor, room.ID)
		return err
	case websocket.RoomSession:
		_, err := sessionFor(ctx, uow, actor, room.ID)
		return err
	}
	return apperror.Forbidden("unknown room")
}
