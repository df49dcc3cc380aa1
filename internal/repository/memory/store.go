// Package memory keeps every record in process memory. It backs the test
// suites and STORE_DRIVER=memory for local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lifestory-be/internal/repository/contract"
	"lifestory-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store is shared by every unit of work it hands out. Each repository call
// is atomic; Begin/Commit/Rollback are accepted but do not roll anything back.
type Store struct {
	mu         sync.Mutex
	sessions   *cache.Cache
	interviews *cache.Cache
	drafts     *cache.Cache
	notes      *cache.Cache
	conflicts  *cache.Cache
	stories    *cache.Cache
	now        func() time.Time
}

func NewStore() *Store {
	newCache := func() *cache.Cache { return cache.New(cache.NoExpiration, 0) }
	return &Store{
		sessions:   newCache(),
		interviews: newCache(),
		drafts:     newCache(),
		notes:      newCache(),
		conflicts:  newCache(),
		stories:    newCache(),
		now:        time.Now,
	}
}

func (s *Store) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

// all returns every value of c, copied, that matches keep.
func all[T any](c *cache.Cache, keep func(*T) bool) []*T {
	var out []*T
	for _, item := range c.Items() {
		v := item.Object.(T)
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
	}
	return out
}

func get[T any](c *cache.Cache, id uuid.UUID) *T {
	x, ok := c.Get(id.String())
	if !ok {
		return nil
	}
	v := x.(T)
	return &v
}

func put[T any](c *cache.Cache, id uuid.UUID, v *T) {
	c.Set(id.String(), *v, cache.NoExpiration)
}

func sortBy[T any](items []*T, less func(a, b *T) bool) []*T {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return items
}

func (s *Store) stamp(id *uuid.UUID, createdAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		*createdAt = s.now()
	}
}

type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(context.Context) error { return nil }
func (u *unitOfWork) Commit() error { return nil }
func (u *unitOfWork) Rollback() error { return nil }

func (u *unitOfWork) SessionRepository() contract.SessionRepository {
	return &sessionRepository{u.store}
}

func (u *unitOfWork) InterviewRepository() contract.InterviewRepository {
	return &interviewRepository{u.store}
}

func (u *unitOfWork) DraftRepository() contract.DraftRepository {
	return &draftRepository{u.store}
}

func (u *unitOfWork) DraftNoteRepository() contract.DraftNoteRepository {
	return &draftNoteRepository{u.store}
}

func (u *unitOfWork) ConflictRepository() contract.ConflictRepository {
	return &conflictRepository{u.store}
}

func (u *unitOfWork) LifeStoryRepository() contract.LifeStoryRepository {
	return &lifeStoryRepository{u.store}
}
