// Package correlator maps a subject (interview or session) and pipeline stage
// to the single external job in flight for it.
//
// A slot holds at most one live job. Tokens are single-use: the first
// Complete, Abort or Expire for a token claims it and every later call is a
// no-op. Jobs that outlive the timeout are expired by Sweep, or lazily on the
// next Lookup, and handed to the expiry handler. A claimed job whose result
// could not be persisted is reinstated so a redelivery or the sweeper can
// settle it later.
package correlator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"lifestory-be/internal/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

type Key struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Stage     string    `json:"stage"`
}

func (k Key) String() string {
	return k.SubjectID.String() + ":" + k.Stage
}

type Job struct {
	Token     string    `json:"token"`
	Key       Key       `json:"key"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
	Deadline  time.Time `json:"deadline"`
}

func (j Job) Expired(now time.Time) bool {
	return !now.Before(j.Deadline)
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeExpired   Outcome = "expired"
	OutcomeAborted   Outcome = "aborted"
)

// ExpiryHandler is invoked for every job that times out. When it fails the
// job goes back in its slot and is expired again on the next sweep.
type ExpiryHandler func(ctx context.Context, job Job) error

type Correlator struct {
	store         Store
	timeout       time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        logger.ILogger

	mu       sync.RWMutex
	onExpire ExpiryHandler
}

type Option func(*Correlator)

func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Correlator) {
		c.now = now
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(c *Correlator) {
		c.logger = l
	}
}

func New(store Store, opts ...Option) *Correlator {
	c := &Correlator{
		store:         store,
		timeout:       DefaultTimeout,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnExpire sets the handler that turns an expired job into a Timeout failure.
func (c *Correlator) OnExpire(h ExpiryHandler) {
	c.mu.Lock()
	c.onExpire = h
	c.mu.Unlock()
}

func (c *Correlator) Timeout() time.Duration {
	return c.timeout
}

// Overdue reports whether a job started at since would have timed out by now.
func (c *Correlator) Overdue(since time.Time) bool {
	return !c.now().Before(since.Add(c.timeout))
}

func newToken() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Register claims the slot for key. It is the only path that permits a
// pipeline call for that subject and stage.
func (c *Correlator) Register(ctx context.Context, key Key) (Job, error) {
	existing, err := c.Lookup(ctx, key)
	if err != nil {
		return Job{}, err
	}
	if existing != nil {
		return Job{}, ErrActiveJob
	}

	attempt, err := c.store.NextAttempt(ctx, key)
	if err != nil {
		return Job{}, err
	}

	now := c.now()
	job := Job{
		Token:     newToken(),
		Key:       key,
		Attempt:   attempt,
		CreatedAt: now,
		Deadline:  now.Add(c.timeout),
	}
	if err := c.store.Put(ctx, job); err != nil {
		return Job{}, err
	}

	c.logger.Info("Correlator", "Job registered", map[string]interface{}{
		"token": job.Token, "subject_id": key.SubjectID, "stage": key.Stage, "attempt": attempt,
	})
	return job, nil
}

// Complete settles token. It reports true only to the caller that claimed it.
func (c *Correlator) Complete(ctx context.Context, token string, outcome Outcome) (bool, error) {
	job, err := c.store.Take(ctx, token)
	if err != nil {
		return false, err
	}
	if job == nil {
		c.logger.Info("Correlator", "Job already settled, ignoring", map[string]interface{}{
			"token": token, "outcome": outcome,
		})
		return false, nil
	}

	c.logger.Info("Correlator", "Job settled", map[string]interface{}{
		"token": token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage, "outcome": outcome,
	})
	return true, nil
}

// Abort releases a slot whose accompanying state change could not be applied.
func (c *Correlator) Abort(ctx context.Context, token string) error {
	_, err := c.Complete(ctx, token, OutcomeAborted)
	return err
}

// Reinstate puts a claimed job back in its slot with its original deadline.
func (c *Correlator) Reinstate(ctx context.Context, job Job) error {
	if err := c.store.Put(ctx, job); err != nil {
		return err
	}
	c.logger.Warn("Correlator", "Job reinstated", map[string]interface{}{
		"token": job.Token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage, "deadline": job.Deadline,
	})
	return nil
}

// Lookup returns the live job for key, or nil. An overdue job is expired first.
func (c *Correlator) Lookup(ctx context.Context, key Key) (*Job, error) {
	job, err := c.store.Get(ctx, key)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Expired(c.now()) {
		if _, err := c.Expire(ctx, job.Token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return job, nil
}

func (c *Correlator) IsActive(ctx context.Context, key Key) (bool, error) {
	job, err := c.Lookup(ctx, key)
	if err != nil {
		return false, err
	}
	return job != nil, nil
}

// Expire claims token as timed out and runs the expiry handler.
func (c *Correlator) Expire(ctx context.Context, token string) (bool, error) {
	job, err := c.store.Take(ctx, token)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	c.logger.Warn("Correlator", "Job expired", map[string]interface{}{
		"token": token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage,
		"age": c.now().Sub(job.CreatedAt).String(),
	})

	c.mu.RLock()
	handler := c.onExpire
	c.mu.RUnlock()
	if handler == nil {
		return true, nil
	}
	if err := handler(ctx, *job); err != nil {
		if putErr := c.store.Put(ctx, *job); putErr != nil {
			c.logger.Error("Correlator", "Expired job lost", map[string]interface{}{
				"error": putErr.Error(), "token": token, "subject_id": job.Key.SubjectID, "stage": job.Key.Stage,
			})
		}
		return false, err
	}
	return true, nil
}

// Sweep expires every overdue job and returns how many it settled. A job
// whose expiry handler fails does not stop the others.
func (c *Correlator) Sweep(ctx context.Context) (int, error) {
	due, err := c.store.Due(ctx, c.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, job := range due {
		ok, err := c.Expire(ctx, job.Token)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// Run sweeps on a ticker until ctx is done.
func (c *Correlator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	c.logger.Info("Correlator", "Sweeper started", map[string]interface{}{
		"interval": c.sweepInterval.String(), "timeout": c.timeout.String(),
	})
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Correlator", "Sweeper stopped", nil)
			return
		case <-ticker.C:
			n, err := c.Sweep(ctx)
			if err != nil {
				c.logger.Error("Correlator", "Sweep failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				c.logger.Info("Correlator", "Sweep expired jobs", map[string]interface{}{"count": n})
			}
		}
	}
}
