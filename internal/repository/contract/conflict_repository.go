package contract

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type ConflictRepository interface {
	CreateBulk(ctx context.Context, conflicts []*entity.Conflict) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conflict, error)
	FindByDraftID(ctx context.Context, draftID uuid.UUID) ([]*entity.Conflict, error)
	// Resolve stores the resolution fields of c while the conflict is still open.
	Resolve(ctx context.Context, c *entity.Conflict) (bool, error)
}
