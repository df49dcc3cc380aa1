package contract

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type InterviewRepository interface {
	Create(ctx context.Context, interview *entity.Interview) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Interview, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Interview, error)
	// TransitionStatus applies upd only if the stored status is one of from.
	// It reports false when the guard did not match or the row is gone.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.InterviewStatus, upd entity.InterviewUpdate) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
