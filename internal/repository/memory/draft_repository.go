package memory

import (
	"context"
	"fmt"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type draftRepository struct {
	s *Store
}

func (r *draftRepository) Create(_ context.Context, draft *entity.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range all[entity.Draft](r.s.drafts, nil) {
		if d.InterviewId == draft.InterviewId && d.Version == draft.Version {
			return fmt.Errorf("draft version %d already exists for interview %s", draft.Version, draft.InterviewId)
		}
	}

	r.s.stamp(&draft.Id, &draft.CreatedAt)
	draft.UpdatedAt = draft.CreatedAt
	put(r.s.drafts, draft.Id, draft)
	return nil
}

func (r *draftRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return get[entity.Draft](r.s.drafts, id), nil
}

func (r *draftRepository) byInterview(interviewID uuid.UUID) []*entity.Draft {
	items := all[entity.Draft](r.s.drafts, func(d *entity.Draft) bool { return d.InterviewId == interviewID })
	return sortBy(items, func(a, b *entity.Draft) bool { return a.Version < b.Version })
}

func (r *draftRepository) FindByInterviewID(_ context.Context, interviewID uuid.UUID) ([]*entity.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.byInterview(interviewID), nil
}

func (r *draftRepository) FindLatest(_ context.Context, interviewID uuid.UUID) (*entity.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	drafts := r.byInterview(interviewID)
	if len(drafts) == 0 {
		return nil, nil
	}
	return drafts[len(drafts)-1], nil
}

func (r *draftRepository) FindApprovedBySessionID(_ context.Context, sessionID uuid.UUID) ([]*entity.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := all[entity.Draft](r.s.drafts, func(d *entity.Draft) bool {
		if d.Status != entity.DraftStatusApproved {
			return false
		}
		iv := get[entity.Interview](r.s.interviews, d.InterviewId)
		return iv != nil && iv.SessionId == sessionID
	})
	return sortBy(items, func(a, b *entity.Draft) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (r *draftRepository) TransitionStatus(_ context.Context, id uuid.UUID, from []entity.DraftStatus, to entity.DraftStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d := get[entity.Draft](r.s.drafts, id)
	if d == nil || !containsStatus(from, d.Status) {
		return false, nil
	}
	d.Status = to
	d.UpdatedAt = r.s.now()
	put(r.s.drafts, id, d)
	return true, nil
}

func (r *draftRepository) SetGeneration(_ context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d := get[entity.Draft](r.s.drafts, id)
	if d == nil {
		return nil
	}
	d.GenerationStatus = status
	d.GenerationError = detail
	d.UpdatedAt = r.s.now()
	put(r.s.drafts, id, d)
	return nil
}

type draftNoteRepository struct {
	s *Store
}

func (r *draftNoteRepository) Append(_ context.Context, note *entity.DraftNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&note.Id, &note.CreatedAt)
	put(r.s.notes, note.Id, note)
	return nil
}

func (r *draftNoteRepository) FindByDraftID(_ context.Context, draftID uuid.UUID) ([]*entity.DraftNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := all[entity.DraftNote](r.s.notes, func(n *entity.DraftNote) bool { return n.DraftId == draftID })
	return sortBy(items, func(a, b *entity.DraftNote) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}
