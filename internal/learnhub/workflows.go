package learnhub

import (
	"context"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/model"
)

// WorkflowService lists the account's async workflow runs (OCR, exports).
// Runs are transient server-side state, so reads are never cached.
type WorkflowService struct {
	api *api.Client
}

// NewWorkflowService constructs a WorkflowService.
func NewWorkflowService(apiClient *api.Client) *WorkflowService {
	return &WorkflowService{api: apiClient}
}

// List returns the account's workflow runs, newest first.
func (s *WorkflowService) List(ctx context.Context) ([]model.WorkflowRun, error) {
	out, err := api.DoAs[[]model.WorkflowRun](ctx, s.api, "/api/v1/workflows", api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []model.WorkflowRun{}, nil
	}
	return *out, nil
}
