package service

import (
	"context"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// sessionFor loads a session the actor owns, or any session for an admin.
func sessionFor(ctx context.Context, uow unitofwork.UnitOfWork, actor dto.Actor, id uuid.UUID) (*entity.Session, error) {
	session, err := uow.SessionRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("session not found")
	}
	if !actor.IsAdmin && session.UserId != actor.UserId {
		return nil, apperror.Forbidden("session belongs to another user")
	}
	return session, nil
}

func interviewFor(ctx context.Context, uow unitofwork.UnitOfWork, actor dto.Actor, id uuid.UUID) (*entity.Interview, error) {
	iv, err := uow.InterviewRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, apperror.NotFound("interview not found")
	}
	if _, err := sessionFor(ctx, uow, actor, iv.SessionId); err != nil {
		return nil, err
	}
	return iv, nil
}
