package contract

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type LifeStoryRepository interface {
	Create(ctx context.Context, story *entity.FullLifeStory) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FullLifeStory, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.FullLifeStory, error)
	FindLatest(ctx context.Context, sessionID uuid.UUID) (*entity.FullLifeStory, error)
	// CompleteGeneration stores content and marks the row ready.
	CompleteGeneration(ctx context.Context, id uuid.UUID, content []byte) error
	SetGeneration(ctx context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.LifeStoryStatus, to entity.LifeStoryStatus) (bool, error)
}
