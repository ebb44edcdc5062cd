package learnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/model"
)

func TestWorkflows_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows", r.URL.Path)
		envelope(w, []model.WorkflowRun{
			{ID: "w2", Status: "running", CreatedAt: "2026-02-02T00:00:00Z"},
			{ID: "w1", Status: "success", CreatedAt: "2026-02-01T00:00:00Z"},
		})
	}))
	defer srv.Close()

	svc := NewWorkflowService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})))
	runs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "w2", runs[0].ID)
}

func TestWorkflows_NullBodyMeansEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, nil)
	}))
	defer srv.Close()

	svc := NewWorkflowService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})))
	runs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
