package correlator

import (
	"context"
	"errors"
	"time"
)

// ErrActiveJob is returned when a (subject, stage) slot is already held by a live job.
var ErrActiveJob = errors.New("an active job already exists for this subject and stage")

// Store persists job slots. Implementations must make Put and Take atomic:
// Put fails with ErrActiveJob while the slot's job has not been taken, and
// Take returns a given token's job to exactly one caller.
type Store interface {
	NextAttempt(ctx context.Context, key Key) (int, error)
	Put(ctx context.Context, job Job) error
	Get(ctx context.Context, key Key) (*Job, error)
	Take(ctx context.Context, token string) (*Job, error)
	Due(ctx context.Context, now time.Time) ([]Job, error)
}
