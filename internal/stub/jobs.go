package stub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/learnhub/learnhub-go/internal/model"
)

// Runner drives fake async jobs through pending -> running -> success on a
// fixed delay, standing in for the real OCR and PDF pipelines.
type Runner struct {
	store *Store
	delay time.Duration
	log   *zap.Logger
}

// NewRunner constructs a Runner. delay is the time spent in each
// non-terminal state.
func NewRunner(store *Store, delay time.Duration, log *zap.Logger) *Runner {
	return &Runner{store: store, delay: delay, log: log}
}

// StartOCR launches a fake OCR job for the problem and returns its id. The
// recognized text is applied to the problem server-side when the job lands.
func (r *Runner) StartOCR(ctx context.Context, userID, problemID, imageURL string) string {
	job := r.store.CreateJob(userID)
	go r.run(ctx, job.ID, func() {
		text := fmt.Sprintf("recognized text for %s", imageURL)
		r.store.ApplyOCRText(problemID, text)
		r.store.FinishJob(job.ID, model.JobSuccess, map[string]string{"ocr_text": text}, "")
	})
	return job.ID
}

// StartExport launches a fake PDF export for the collection and returns the
// job id. The result payload carries the download URL.
func (r *Runner) StartExport(ctx context.Context, userID, collectionID, publicBase string) string {
	job := r.store.CreateJob(userID)
	go r.run(ctx, job.ID, func() {
		key := "exports/" + collectionID + ".pdf"
		r.store.PutObject(key, []byte("%PDF-1.4 stub export\n"))
		r.store.FinishJob(job.ID, model.JobSuccess, map[string]string{"url": publicBase + "/files/" + key}, "")
	})
	return job.ID
}

func (r *Runner) run(ctx context.Context, jobID string, finish func()) {
	if !r.sleep(ctx, jobID) {
		return
	}
	r.store.SetJobRunning(jobID)
	if !r.sleep(ctx, jobID) {
		return
	}
	finish()
	r.log.Debug("job finished", zap.String("job_id", jobID))
}

func (r *Runner) sleep(ctx context.Context, jobID string) bool {
	select {
	case <-time.After(r.delay):
		return true
	case <-ctx.Done():
		r.store.FinishJob(jobID, model.JobFailed, nil, "server shutting down")
		return false
	}
}
