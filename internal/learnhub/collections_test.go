package learnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/cache"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

type stubTokens struct{}

func (stubTokens) Token() (string, error) { return "t", nil }

func TestCollectionList_IdempotentAndCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		envelope(w, []model.Collection{
			{ID: "c1", Name: "algebra", ProblemCount: 3},
			{ID: "c2", Name: "geometry"},
		})
	}))
	defer srv.Close()

	s := NewCollectionService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))

	first, err := s.List(context.Background())
	require.NoError(t, err)
	second, err := s.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second, "unchanged server state yields an identical list")
	assert.Equal(t, []string{"c1", "c2"}, []string{first[0].ID, first[1].ID})
	assert.Equal(t, int32(1), hits.Load())
}

func TestCollectionCreate_InvalidatesListing(t *testing.T) {
	var listHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			envelope(w, model.Collection{ID: "c9", Name: "physics"})
		default:
			listHits.Add(1)
			envelope(w, []model.Collection{})
		}
	}))
	defer srv.Close()

	s := NewCollectionService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))

	_, err := s.List(context.Background())
	require.NoError(t, err)

	created, err := s.Create(context.Background(), "physics")
	require.NoError(t, err)
	assert.Equal(t, "c9", created.ID)

	_, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), listHits.Load(), "create invalidates the cached listing")
}

func TestCollectionCreate_EmptyName(t *testing.T) {
	s := NewCollectionService(api.New(func() string { return "http://unused" }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))
	_, err := s.Create(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCollectionExportPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/c1/export_pdf", r.URL.Path)
		envelope(w, map[string]string{"job_id": "j-1"})
	}))
	defer srv.Close()

	s := NewCollectionService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))
	jobID, err := s.ExportPDF(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "j-1", jobID)
}

func TestCollectionExportPDF_MissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]string{})
	}))
	defer srv.Close()

	s := NewCollectionService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))
	_, err := s.ExportPDF(context.Background(), "c1")
	assert.Error(t, err)
}

func TestCollectionProblems_CacheScopedToCollection(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		envelope(w, []model.Problem{{ID: "p1", CollectionID: "c1", Version: 1}})
	}))
	defer srv.Close()

	s := NewCollectionService(api.New(func() string { return srv.URL }, api.WithTokenSource(stubTokens{})), cache.New(8, time.Minute))

	_, err := s.Problems(context.Background(), "c1")
	require.NoError(t, err)
	_, err = s.Problems(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	s.InvalidateCollection("c1")
	_, err = s.Problems(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "export job success refreshes the collection")
}
