package learnhub

import (
	"context"
	"fmt"
	"net/http"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/cache"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

// ProblemService exposes problem operations. Updates enforce the optimistic
// concurrency contract: the last-known version is always echoed, conflicts
// surface to the caller, and there is no merge or silent retry.
type ProblemService struct {
	api   *api.Client
	cache *cache.Cache
}

// NewProblemService constructs a ProblemService.
func NewProblemService(apiClient *api.Client, c *cache.Cache) *ProblemService {
	return &ProblemService{api: apiClient, cache: c}
}

func problemKey(id string) string { return "problems/" + id }

// NewProblem is the creation payload: after a successful upload the public
// image URL becomes the problem's original image.
type NewProblem struct {
	CollectionID     string  `json:"collection_id"`
	OriginalImageURL string  `json:"original_image_url"`
	CroppedImageURL  *string `json:"cropped_image_url"`
	OrderIndex       int     `json:"order_index"`
}

// Get returns a single problem, cached per session TTL.
func (s *ProblemService) Get(ctx context.Context, id string) (*model.Problem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty problem id", errs.ErrValidation)
	}
	if v, ok := s.cache.Get(problemKey(id)); ok {
		p := v.(model.Problem)
		return &p, nil
	}
	out, err := api.DoAs[model.Problem](ctx, s.api, "/api/v1/problems/"+id, api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("problem %s: %w", id, errs.ErrNotFound)
	}
	s.cache.Set(problemKey(id), *out)
	return out, nil
}

// Create records a new problem from an uploaded image.
func (s *ProblemService) Create(ctx context.Context, np NewProblem) (*model.Problem, error) {
	if np.CollectionID == "" {
		return nil, fmt.Errorf("%w: empty collection id", errs.ErrValidation)
	}
	if np.OriginalImageURL == "" {
		return nil, fmt.Errorf("%w: missing image url (upload first)", errs.ErrValidation)
	}
	out, err := api.DoAs[model.Problem](ctx, s.api, "/api/v1/problems", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
		Body:         np,
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix("collections/" + np.CollectionID)
	s.cache.Invalidate("collections")
	return out, nil
}

// Update patches problem content. The patch must carry the version from the
// last read; a locally missing version never reaches the network, and a
// stale one comes back as errs.ErrVersionConflict from the backend.
func (s *ProblemService) Update(ctx context.Context, id string, patch model.ProblemPatch) (*model.Problem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty problem id", errs.ErrValidation)
	}
	if patch.Version <= 0 {
		return nil, fmt.Errorf("%w: missing version, re-read the problem first", errs.ErrValidation)
	}
	out, err := api.DoAs[model.Problem](ctx, s.api, "/api/v1/problems/"+id, api.Options{
		Method:       http.MethodPatch,
		AuthRequired: true,
		Body:         patch,
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateProblem(id)
	return out, nil
}

// Delete removes a problem.
func (s *ProblemService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty problem id", errs.ErrValidation)
	}
	_, err := s.api.Do(ctx, "/api/v1/problems/"+id, api.Options{
		Method:       http.MethodDelete,
		AuthRequired: true,
	})
	if err != nil {
		return err
	}
	s.InvalidateProblem(id)
	return nil
}

// RequestOCR triggers the async OCR job for the problem's image and returns
// the job id to watch.
func (s *ProblemService) RequestOCR(ctx context.Context, id, imageURL string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty problem id", errs.ErrValidation)
	}
	if imageURL == "" {
		return "", fmt.Errorf("%w: problem has no image url", errs.ErrValidation)
	}
	out, err := api.DoAs[struct {
		JobID string `json:"job_id"`
	}](ctx, s.api, "/api/v1/problems/"+id+"/ocr", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
		Body:         map[string]string{"image_url": imageURL},
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.JobID == "" {
		return "", &api.Error{Kind: api.KindServer, Message: "ocr response missing job id"}
	}
	return out.JobID, nil
}

// InvalidateProblem drops cached state for one problem and every collection
// listing that may contain it. Called after mutations and terminal OCR jobs.
func (s *ProblemService) InvalidateProblem(id string) {
	s.cache.Invalidate(problemKey(id))
	s.cache.InvalidatePrefix("collections")
}
