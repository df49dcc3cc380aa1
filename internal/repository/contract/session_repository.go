package contract

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

// Find* methods return (nil, nil) when the row does not exist.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// UpdateStatusFrom writes to only while the stored status is from.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.SessionStatus) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SessionStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}
