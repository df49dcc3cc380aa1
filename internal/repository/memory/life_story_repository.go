package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type lifeStoryRepository struct {
	s *Store
}

func (r *lifeStoryRepository) Create(_ context.Context, story *entity.FullLifeStory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, st := range all[entity.FullLifeStory](r.s.stories, nil) {
		if st.SessionId == story.SessionId && st.Version == story.Version {
			return fmt.Errorf("life story version %d already exists for session %s", story.Version, story.SessionId)
		}
	}

	r.s.stamp(&story.Id, &story.CreatedAt)
	story.UpdatedAt = story.CreatedAt
	put(r.s.stories, story.Id, story)
	return nil
}

func (r *lifeStoryRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.FullLifeStory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return get[entity.FullLifeStory](r.s.stories, id), nil
}

func (r *lifeStoryRepository) bySession(sessionID uuid.UUID) []*entity.FullLifeStory {
	items := all[entity.FullLifeStory](r.s.stories, func(l *entity.FullLifeStory) bool { return l.SessionId == sessionID })
	return sortBy(items, func(a, b *entity.FullLifeStory) bool { return a.Version < b.Version })
}

func (r *lifeStoryRepository) FindBySessionID(_ context.Context, sessionID uuid.UUID) ([]*entity.FullLifeStory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.bySession(sessionID), nil
}

func (r *lifeStoryRepository) FindLatest(_ context.Context, sessionID uuid.UUID) (*entity.FullLifeStory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stories := r.bySession(sessionID)
	if len(stories) == 0 {
		return nil, nil
	}
	return stories[len(stories)-1], nil
}

func (r *lifeStoryRepository) CompleteGeneration(_ context.Context, id uuid.UUID, content []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := get[entity.FullLifeStory](r.s.stories, id)
	if st == nil {
		return nil
	}
	st.Content = json.RawMessage(content)
	st.GenerationStatus = entity.GenerationStatusReady
	st.GenerationError = ""
	st.UpdatedAt = r.s.now()
	put(r.s.stories, id, st)
	return nil
}

func (r *lifeStoryRepository) SetGeneration(_ context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := get[entity.FullLifeStory](r.s.stories, id)
	if st == nil {
		return nil
	}
	st.GenerationStatus = status
	st.GenerationError = detail
	st.UpdatedAt = r.s.now()
	put(r.s.stories, id, st)
	return nil
}

func (r *lifeStoryRepository) TransitionStatus(_ context.Context, id uuid.UUID, from []entity.LifeStoryStatus, to entity.LifeStoryStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := get[entity.FullLifeStory](r.s.stories, id)
	if st == nil || !containsStatus(from, st.Status) {
		return false, nil
	}
	st.Status = to
	st.UpdatedAt = r.s.now()
	put(r.s.stories, id, st)
	return true, nil
}
