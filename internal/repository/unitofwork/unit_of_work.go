package unitofwork

import (
	"context"

	"lifestory-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	InterviewRepository() contract.InterviewRepository
	DraftRepository() contract.DraftRepository
	DraftNoteRepository() contract.DraftNoteRepository
	ConflictRepository() contract.ConflictRepository
	LifeStoryRepository() contract.LifeStoryRepository
}

// InTransaction runs fn inside a transaction on uow and commits when fn
// returns nil.
func InTransaction(ctx context.Context, uow UnitOfWork, fn func(UnitOfWork) error) (err error) {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	if err = fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
