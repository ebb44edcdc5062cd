package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

// jobServer serves /api/v1/jobs/{id} with a scripted status sequence; the
// last status repeats once the script is exhausted.
func jobServer(t *testing.T, polls *atomic.Int32, statuses ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(polls.Add(1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		job := model.Job{ID: "j1", Status: status}
		if status == model.JobFailed {
			job.ErrorMessage = "ocr engine crashed"
		}
		payload, _ := json.Marshal(map[string]any{"code": 0, "message": "", "data": job})
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPoller(srv *httptest.Server, opts ...Option) *Poller {
	opts = append([]Option{WithInterval(5 * time.Millisecond)}, opts...)
	return New(api.New(func() string { return srv.URL }), opts...)
}

func TestWatch_StopsAtFirstTerminalPoll(t *testing.T) {
	var polls atomic.Int32
	srv := jobServer(t, &polls, "pending", "running", "running", "success")

	invalidations := 0
	job, err := newPoller(srv).Watch(context.Background(), "j1", func(j *model.Job) {
		invalidations++
		assert.Equal(t, model.JobSuccess, j.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, job.Status)
	assert.Equal(t, int32(4), polls.Load(), "polling stops exactly at the terminal poll")
	assert.Equal(t, 1, invalidations, "exactly one cache invalidation")
}

func TestWatch_FailedJob(t *testing.T) {
	var polls atomic.Int32
	srv := jobServer(t, &polls, "running", "failed")

	job, err := newPoller(srv).Watch(context.Background(), "j1", func(*model.Job) {
		t.Fatal("onSuccess must not fire for a failed job")
	})
	var fe *FailedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "ocr engine crashed", fe.Message)
	require.NotNil(t, job)
	assert.Equal(t, model.JobFailed, job.Status)
}

func TestWatch_AttemptBudget(t *testing.T) {
	var polls atomic.Int32
	srv := jobServer(t, &polls, "running")

	_, err := newPoller(srv, WithMaxAttempts(3)).Watch(context.Background(), "j1", nil)
	assert.ErrorIs(t, err, ErrWatchExhausted)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWatch_ContextCancellation(t *testing.T) {
	var polls atomic.Int32
	srv := jobServer(t, &polls, "running")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p := New(api.New(func() string { return srv.URL }), WithInterval(time.Hour))
	_, err := p.Watch(ctx, "j1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatch_PollErrorEndsWatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newPoller(srv).Watch(context.Background(), "j1", nil)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), hits.Load(), "a failed poll is not retried")
}

func TestWatch_EmptyJobID(t *testing.T) {
	p := New(api.New(func() string { return "http://unused" }))
	_, err := p.Watch(context.Background(), "", nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
