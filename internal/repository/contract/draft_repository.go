package contract

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type DraftRepository interface {
	Create(ctx context.Context, draft *entity.Draft) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Draft, error)
	// FindByInterviewID lists every version, oldest first.
	FindByInterviewID(ctx context.Context, interviewID uuid.UUID) ([]*entity.Draft, error)
	FindLatest(ctx context.Context, interviewID uuid.UUID) (*entity.Draft, error)
	FindApprovedBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Draft, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.DraftStatus, to entity.DraftStatus) (bool, error)
	SetGeneration(ctx context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error
}

type DraftNoteRepository interface {
	Append(ctx context.Context, note *entity.DraftNote) error
	FindByDraftID(ctx context.Context, draftID uuid.UUID) ([]*entity.DraftNote, error)
}
