package memory

import (
	"context"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type sessionRepository struct {
	s *Store
}

func (r *sessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&session.Id, &session.CreatedAt)
	session.UpdatedAt = session.CreatedAt
	if session.Status == "" {
		session.Status = entity.SessionStatusPending
	}
	put(r.s.sessions, session.Id, session)
	return nil
}

func (r *sessionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return get[entity.Session](r.s.sessions, id), nil
}

func (r *sessionRepository) UpdateStatusFrom(_ context.Context, id uuid.UUID, from, to entity.SessionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session := get[entity.Session](r.s.sessions, id)
	if session == nil || session.Status != from {
		return false, nil
	}
	session.Status = to
	session.UpdatedAt = r.s.now()
	put(r.s.sessions, id, session)
	return true, nil
}

func (r *sessionRepository) UpdateStatus(_ context.Context, id uuid.UUID, status entity.SessionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session := get[entity.Session](r.s.sessions, id)
	if session == nil {
		return nil
	}
	session.Status = status
	session.UpdatedAt = r.s.now()
	put(r.s.sessions, id, session)
	return nil
}

// Delete cascades to interviews, drafts, notes, conflicts and life stories.
func (r *sessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, iv := range all[entity.Interview](r.s.interviews, func(i *entity.Interview) bool { return i.SessionId == id }) {
		r.s.deleteInterviewLocked(iv.Id)
	}
	for _, st := range all[entity.FullLifeStory](r.s.stories, func(l *entity.FullLifeStory) bool { return l.SessionId == id }) {
		r.s.stories.Delete(st.Id.String())
	}
	r.s.sessions.Delete(id.String())
	return nil
}
