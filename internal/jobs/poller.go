// Package jobs polls asynchronous backend jobs until they reach a terminal
// state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

const (
	// DefaultInterval is the fixed delay between polls of a non-terminal job.
	DefaultInterval = 3 * time.Second

	// DefaultMaxAttempts bounds a watch (~10 minutes at the default
	// interval). A job stuck in running does not get polled forever.
	DefaultMaxAttempts = 200
)

// ErrWatchExhausted is returned when a job never reached a terminal state
// within the attempt budget.
var ErrWatchExhausted = errors.New("jobs: attempt budget exhausted before terminal state")

// FailedError carries the backend's failure message for a terminal failed job.
type FailedError struct {
	JobID   string
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return "jobs: job " + e.JobID + " failed"
	}
	return "jobs: job " + e.JobID + " failed: " + e.Message
}

// errNotTerminal drives the retry schedule; it never escapes Watch.
var errNotTerminal = errors.New("job not terminal")

// Poller watches jobs by id. Safe for concurrent use.
type Poller struct {
	api         *api.Client
	interval    time.Duration
	maxAttempts uint
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval overrides the fixed poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n uint) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// New constructs a Poller over the given API client.
func New(apiClient *api.Client, opts ...Option) *Poller {
	p := &Poller{api: apiClient, interval: DefaultInterval, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Watch polls the job at a fixed interval until its status is terminal, the
// context is cancelled, or the attempt budget runs out. On success the
// onSuccess hook fires exactly once, before Watch returns; the hook is where
// callers invalidate cached representations of the affected parent entity.
// A terminal failed status returns the job together with a *FailedError.
// A poll that itself fails (transport, auth, server) ends the watch with
// that error; polling is scheduling, not failure retry.
func (p *Poller) Watch(ctx context.Context, jobID string, onSuccess func(*model.Job)) (*model.Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobs: %w: empty job id", errs.ErrValidation)
	}

	job, err := retry.NewWithData[*model.Job](
		retry.Context(ctx),
		retry.Attempts(p.maxAttempts),
		retry.Delay(p.interval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errNotTerminal) }),
		retry.LastErrorOnly(true),
	).Do(func() (*model.Job, error) {
		return p.fetch(ctx, jobID)
	})
	if err != nil {
		if errors.Is(err, errNotTerminal) {
			return nil, ErrWatchExhausted
		}
		return nil, err
	}

	switch job.Status {
	case model.JobSuccess:
		if onSuccess != nil {
			onSuccess(job)
		}
		return job, nil
	default: // model.JobFailed
		return job, &FailedError{JobID: jobID, Message: job.ErrorMessage}
	}
}

// Status fetches the job's current state once, terminal or not.
func (p *Poller) Status(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobs: %w: empty job id", errs.ErrValidation)
	}
	job, err := api.DoAs[model.Job](ctx, p.api, "/api/v1/jobs/"+jobID, api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("jobs: %s: %w", jobID, errs.ErrNotFound)
	}
	return job, nil
}

func (p *Poller) fetch(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := p.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.JobTerminal(job.Status) {
		return nil, errNotTerminal
	}
	return job, nil
}
