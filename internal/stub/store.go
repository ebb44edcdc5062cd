// Package stub implements an in-memory LearnHub backend for offline
// development and integration tests. It honors the same wire contracts as
// the real service: envelope responses, bearer auth, presigned uploads and
// optimistic versioning, with fake async jobs instead of real OCR/PDF work.
package stub

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

// Store keeps all backend state in memory, scoped per user where the
// entity is user-owned. All methods are concurrency-safe.
type Store struct {
	mu          sync.Mutex
	users       map[string]string // phone -> user id
	profiles    map[string]model.AuthUser
	collections map[string]*model.Collection
	problems    map[string]*model.Problem
	jobs        map[string]*model.Job
	jobCreated  map[string]time.Time
	objects     map[string][]byte // object_key -> blob
	ownership   map[string]string // entity id -> user id
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]string),
		profiles:    make(map[string]model.AuthUser),
		collections: make(map[string]*model.Collection),
		problems:    make(map[string]*model.Problem),
		jobs:        make(map[string]*model.Job),
		jobCreated:  make(map[string]time.Time),
		objects:     make(map[string][]byte),
		ownership:   make(map[string]string),
	}
}

func newID() string {
	id, _ := uuid.NewV4()
	return id.String()
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }

// UserByPhone returns a stable user id for the phone, creating the account
// on first login.
func (s *Store) UserByPhone(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.users[phone]; ok {
		return id
	}
	id := newID()
	s.users[phone] = id
	s.profiles[id] = model.AuthUser{ID: id, Phone: phone, Nickname: "Learner"}
	return id
}

// User returns the stored profile for a user id.
func (s *Store) User(id string) (model.AuthUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.profiles[id]
	return u, ok
}

// --- collections ---

func (s *Store) owns(userID, entityID string) bool {
	return s.ownership[entityID] == userID
}

// Collections lists the user's collections, newest update first.
func (s *Store) Collections(userID string) []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Collection, 0, len(s.collections))
	for id, rec := range s.collections {
		if !s.owns(userID, id) {
			continue
		}
		c := *rec
		c.ProblemCount = s.problemCountLocked(id)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

func (s *Store) problemCountLocked(collectionID string) int {
	n := 0
	for _, p := range s.problems {
		if p.CollectionID == collectionID {
			n++
		}
	}
	return n
}

// CreateCollection makes a collection owned by the user.
func (s *Store) CreateCollection(userID, name string) model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Collection{ID: newID(), Name: name, UpdatedAt: nowStamp()}
	s.collections[c.ID] = &c
	s.ownership[c.ID] = userID
	return c
}

// Collection returns one collection with its live problem count.
func (s *Store) Collection(userID, id string) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[id]
	if !ok || !s.owns(userID, id) {
		return model.Collection{}, errs.ErrNotFound
	}
	c := *rec
	c.ProblemCount = s.problemCountLocked(id)
	return c, nil
}

// RenameCollection updates the name.
func (s *Store) RenameCollection(userID, id, name string) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[id]
	if !ok || !s.owns(userID, id) {
		return model.Collection{}, errs.ErrNotFound
	}
	rec.Name = name
	rec.UpdatedAt = nowStamp()
	return *rec, nil
}

// DeleteCollection removes the collection and its problems.
func (s *Store) DeleteCollection(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok || !s.owns(userID, id) {
		return errs.ErrNotFound
	}
	delete(s.collections, id)
	delete(s.ownership, id)
	for pid, p := range s.problems {
		if p.CollectionID == id {
			delete(s.problems, pid)
			delete(s.ownership, pid)
		}
	}
	return nil
}

// CollectionProblems lists a collection's problems by order index.
func (s *Store) CollectionProblems(userID, id string) ([]model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok || !s.owns(userID, id) {
		return nil, errs.ErrNotFound
	}
	var out []model.Problem
	for _, p := range s.problems {
		if p.CollectionID == id {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- problems ---

// CreateProblem stores a new problem at version 1.
func (s *Store) CreateProblem(userID string, p model.Problem) (model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[p.CollectionID]; !ok || !s.owns(userID, p.CollectionID) {
		return model.Problem{}, errs.ErrNotFound
	}
	p.ID = newID()
	p.Status = "new"
	p.Version = 1
	p.UpdatedAt = nowStamp()
	s.problems[p.ID] = &p
	s.ownership[p.ID] = userID
	return p, nil
}

// Problem returns one problem.
func (s *Store) Problem(userID, id string) (model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.problems[id]
	if !ok || !s.owns(userID, id) {
		return model.Problem{}, errs.ErrNotFound
	}
	return *p, nil
}

// UpdateProblem applies a patch with optimistic concurrency: the patch's
// base version must match the stored version exactly, and only the store
// advances it.
func (s *Store) UpdateProblem(userID, id string, patch model.ProblemPatch) (model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.problems[id]
	if !ok || !s.owns(userID, id) {
		return model.Problem{}, errs.ErrNotFound
	}
	if p.Version != patch.Version {
		return model.Problem{}, fmt.Errorf("problem %s: %w", id, errs.ErrVersionConflict)
	}
	if patch.OCRText != nil {
		p.OCRText = *patch.OCRText
	}
	if patch.Note != nil {
		p.Note = *patch.Note
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.CollectionID != nil && *patch.CollectionID != "" {
		p.CollectionID = *patch.CollectionID
	}
	p.OrderIndex = patch.OrderIndex
	p.Version++
	p.UpdatedAt = nowStamp()
	return *p, nil
}

// DeleteProblem removes a problem.
func (s *Store) DeleteProblem(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.problems[id]; !ok || !s.owns(userID, id) {
		return errs.ErrNotFound
	}
	delete(s.problems, id)
	delete(s.ownership, id)
	return nil
}

// --- jobs ---

// CreateJob records a pending job owned by the user.
func (s *Store) CreateJob(userID string) model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := model.Job{ID: newID(), Status: model.JobPending}
	s.jobs[j.ID] = &j
	s.jobCreated[j.ID] = time.Now().UTC()
	s.ownership[j.ID] = userID
	return j
}

// WorkflowRuns lists the user's jobs as workflow runs, newest first.
func (s *Store) WorkflowRuns(userID string) []model.WorkflowRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.WorkflowRun, 0, len(s.jobs))
	for id, j := range s.jobs {
		if !s.owns(userID, id) {
			continue
		}
		out = append(out, model.WorkflowRun{
			ID:        id,
			Status:    j.Status,
			CreatedAt: s.jobCreated[id].Format(time.RFC3339),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// Job returns one job.
func (s *Store) Job(userID, id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || !s.owns(userID, id) {
		return model.Job{}, errs.ErrNotFound
	}
	return *j, nil
}

// SetJobRunning moves a pending job to running.
func (s *Store) SetJobRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok && j.Status == model.JobPending {
		j.Status = model.JobRunning
		j.Progress = 50
	}
}

// FinishJob moves a job to a terminal state with its result payload.
func (s *Store) FinishJob(id, status string, result any, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || model.JobTerminal(j.Status) {
		return
	}
	j.Status = status
	j.Progress = 100
	j.ErrorMessage = errMsg
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			j.Result = b
		}
	}
}

// ApplyOCRText writes job output onto the problem, bypassing the version
// check: the server is the authority and bumps the version itself.
func (s *Store) ApplyOCRText(problemID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.problems[problemID]; ok {
		p.OCRText = text
		p.Status = "analyzed"
		p.Version++
		p.UpdatedAt = nowStamp()
	}
}

// --- objects ---

// PutObject stores an uploaded blob.
func (s *Store) PutObject(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = blob
}

// Object returns a stored blob.
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}
