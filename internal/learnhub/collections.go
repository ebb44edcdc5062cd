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

// CollectionService exposes collection operations with a read-through cache.
type CollectionService struct {
	api   *api.Client
	cache *cache.Cache
}

// NewCollectionService constructs a CollectionService.
func NewCollectionService(apiClient *api.Client, c *cache.Cache) *CollectionService {
	return &CollectionService{api: apiClient, cache: c}
}

const collectionsKey = "collections"

func collectionKey(id string) string { return "collections/" + id }

// List returns all collections, cached per session TTL.
func (s *CollectionService) List(ctx context.Context) ([]model.Collection, error) {
	if v, ok := s.cache.Get(collectionsKey); ok {
		return v.([]model.Collection), nil
	}
	out, err := api.DoAs[[]model.Collection](ctx, s.api, "/api/v1/collections", api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	var list []model.Collection
	if out != nil {
		list = *out
	}
	s.cache.Set(collectionsKey, list)
	return list, nil
}

// Get returns a single collection.
func (s *CollectionService) Get(ctx context.Context, id string) (*model.Collection, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty collection id", errs.ErrValidation)
	}
	if v, ok := s.cache.Get(collectionKey(id)); ok {
		c := v.(model.Collection)
		return &c, nil
	}
	out, err := api.DoAs[model.Collection](ctx, s.api, "/api/v1/collections/"+id, api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("collection %s: %w", id, errs.ErrNotFound)
	}
	s.cache.Set(collectionKey(id), *out)
	return out, nil
}

// Create makes a new collection with a user-supplied name.
func (s *CollectionService) Create(ctx context.Context, name string) (*model.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty collection name", errs.ErrValidation)
	}
	out, err := api.DoAs[model.Collection](ctx, s.api, "/api/v1/collections", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
		Body:         map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(collectionsKey)
	return out, nil
}

// Rename updates the collection name.
func (s *CollectionService) Rename(ctx context.Context, id, name string) (*model.Collection, error) {
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: empty collection id/name", errs.ErrValidation)
	}
	out, err := api.DoAs[model.Collection](ctx, s.api, "/api/v1/collections/"+id, api.Options{
		Method:       http.MethodPatch,
		AuthRequired: true,
		Body:         map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateCollection(id)
	return out, nil
}

// Delete removes the collection and everything cached under it.
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty collection id", errs.ErrValidation)
	}
	_, err := s.api.Do(ctx, "/api/v1/collections/"+id, api.Options{
		Method:       http.MethodDelete,
		AuthRequired: true,
	})
	if err != nil {
		return err
	}
	s.InvalidateCollection(id)
	return nil
}

// Problems lists the collection's problems, cached per session TTL.
func (s *CollectionService) Problems(ctx context.Context, id string) ([]model.Problem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty collection id", errs.ErrValidation)
	}
	key := collectionKey(id) + "/problems"
	if v, ok := s.cache.Get(key); ok {
		return v.([]model.Problem), nil
	}
	out, err := api.DoAs[[]model.Problem](ctx, s.api, "/api/v1/collections/"+id+"/problems", api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	var list []model.Problem
	if out != nil {
		list = *out
	}
	s.cache.Set(key, list)
	return list, nil
}

// ExportPDF triggers the async export job and returns the job id to watch.
func (s *CollectionService) ExportPDF(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty collection id", errs.ErrValidation)
	}
	out, err := api.DoAs[struct {
		JobID string `json:"job_id"`
	}](ctx, s.api, "/api/v1/collections/"+id+"/export_pdf", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.JobID == "" {
		return "", &api.Error{Kind: api.KindServer, Message: "export response missing job id"}
	}
	return out.JobID, nil
}

// InvalidateCollection drops cached state for one collection and the
// overall listing. Called after mutations and terminal export jobs.
func (s *CollectionService) InvalidateCollection(id string) {
	s.cache.Invalidate(collectionsKey)
	s.cache.InvalidatePrefix(collectionKey(id))
}
