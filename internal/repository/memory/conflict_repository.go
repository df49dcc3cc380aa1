package memory

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type conflictRepository struct {
	s *Store
}

func (r *conflictRepository) CreateBulk(_ context.Context, conflicts []*entity.Conflict) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range conflicts {
		r.s.stamp(&c.Id, &c.CreatedAt)
		if c.Status == "" {
			c.Status = entity.ConflictStatusOpen
		}
		put(r.s.conflicts, c.Id, c)
	}
	return nil
}

func (r *conflictRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Conflict, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return get[entity.Conflict](r.s.conflicts, id), nil
}

func (r *conflictRepository) FindByDraftID(_ context.Context, draftID uuid.UUID) ([]*entity.Conflict, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := all[entity.Conflict](r.s.conflicts, func(c *entity.Conflict) bool { return c.DraftId == draftID })
	return sortBy(items, func(a, b *entity.Conflict) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (r *conflictRepository) Resolve(_ context.Context, c *entity.Conflict) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := get[entity.Conflict](r.s.conflicts, c.Id)
	if stored == nil || stored.Status != entity.ConflictStatusOpen {
		return false, nil
	}
	stored.Status = entity.ConflictStatusResolved
	stored.Resolution = c.Resolution
	stored.MergedText = c.MergedText
	stored.ResolvedBy = c.ResolvedBy
	stored.ResolvedAt = c.ResolvedAt
	put(r.s.conflicts, c.Id, stored)
	return true, nil
}
