package memory

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type interviewRepository struct {
	s *Store
}

func (r *interviewRepository) Create(_ context.Context, interview *entity.Interview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&interview.Id, &interview.CreatedAt)
	interview.UpdatedAt = interview.CreatedAt
	if interview.Status == "" {
		interview.Status = entity.InterviewStatusScheduled
	}
	put(r.s.interviews, interview.Id, interview)
	return nil
}

func (r *interviewRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return get[entity.Interview](r.s.interviews, id), nil
}

func (r *interviewRepository) FindBySessionID(_ context.Context, sessionID uuid.UUID) ([]*entity.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := all[entity.Interview](r.s.interviews, func(i *entity.Interview) bool { return i.SessionId == sessionID })
	return sortBy(items, func(a, b *entity.Interview) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (r *interviewRepository) TransitionStatus(_ context.Context, id uuid.UUID, from []entity.InterviewStatus, upd entity.InterviewUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	iv := get[entity.Interview](r.s.interviews, id)
	if iv == nil || !containsStatus(from, iv.Status) {
		return false, nil
	}

	iv.Status = upd.Status
	iv.FailureReason = upd.FailureReason
	iv.ErrorDetail = upd.ErrorDetail
	if upd.Transcript != nil {
		iv.Transcript = upd.Transcript
	}
	if upd.AudioRef != nil {
		iv.AudioRef = upd.AudioRef
	}
	if upd.QualityScores != nil {
		iv.QualityScores = upd.QualityScores
	}
	at := upd.At
	switch upd.Status {
	case entity.InterviewStatusInProgress:
		iv.StartedAt = &at
	case entity.InterviewStatusCompleted:
		iv.CompletedAt = &at
	}
	iv.UpdatedAt = r.s.now()

	put(r.s.interviews, id, iv)
	return true, nil
}

func (r *interviewRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deleteInterviewLocked(id)
	return nil
}

func (s *Store) deleteInterviewLocked(id uuid.UUID) {
	for _, d := range all[entity.Draft](s.drafts, func(d *entity.Draft) bool { return d.InterviewId == id }) {
		for _, c := range all[entity.Conflict](s.conflicts, func(c *entity.Conflict) bool { return c.DraftId == d.Id }) {
			s.conflicts.Delete(c.Id.String())
		}
		for _, n := range all[entity.DraftNote](s.notes, func(n *entity.DraftNote) bool { return n.DraftId == d.Id }) {
			s.notes.Delete(n.Id.String())
		}
		s.drafts.Delete(d.Id.String())
	}
	s.interviews.Delete(id.String())
}

func containsStatus[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
