package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

const tokenTTL = 24 * time.Hour

// Server wires the in-memory store, job runner and limiter into HTTP
// handlers speaking the LearnHub envelope protocol.
type Server struct {
	store   *Store
	runner  *Runner
	limiter *SMSLimiter
	signKey []byte
	jobCtx  context.Context
	log     *zap.Logger
}

// New constructs a Server. jobCtx bounds the lifetime of background jobs:
// when it is canceled, in-flight jobs land as failed.
func New(jobCtx context.Context, store *Store, runner *Runner, limiter *SMSLimiter, signKey []byte, log *zap.Logger) *Server {
	return &Server{
		store:   store,
		runner:  runner,
		limiter: limiter,
		signKey: signKey,
		jobCtx:  jobCtx,
		log:     log,
	}
}

// Handler returns the full route table wrapped in logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/sms/send", s.smsSend)
	mux.HandleFunc("POST /api/v1/auth/sms/verify", s.smsVerify)
	mux.HandleFunc("POST /api/v1/auth/exchange", s.exchange)
	mux.HandleFunc("POST /api/v1/auth/google/verify", s.googleVerify)

	mux.HandleFunc("GET /api/v1/me", s.auth(s.me))

	mux.HandleFunc("GET /api/v1/collections", s.auth(s.listCollections))
	mux.HandleFunc("POST /api/v1/collections", s.auth(s.createCollection))
	mux.HandleFunc("GET /api/v1/collections/{id}", s.auth(s.getCollection))
	mux.HandleFunc("PATCH /api/v1/collections/{id}", s.auth(s.renameCollection))
	mux.HandleFunc("DELETE /api/v1/collections/{id}", s.auth(s.deleteCollection))
	mux.HandleFunc("GET /api/v1/collections/{id}/problems", s.auth(s.collectionProblems))
	mux.HandleFunc("POST /api/v1/collections/{id}/export_pdf", s.auth(s.exportPDF))

	mux.HandleFunc("POST /api/v1/problems", s.auth(s.createProblem))
	mux.HandleFunc("GET /api/v1/problems/{id}", s.auth(s.getProblem))
	mux.HandleFunc("PATCH /api/v1/problems/{id}", s.auth(s.updateProblem))
	mux.HandleFunc("DELETE /api/v1/problems/{id}", s.auth(s.deleteProblem))
	mux.HandleFunc("POST /api/v1/problems/{id}/ocr", s.auth(s.requestOCR))

	mux.HandleFunc("GET /api/v1/jobs/{id}", s.auth(s.getJob))
	mux.HandleFunc("GET /api/v1/workflows", s.auth(s.listWorkflows))

	mux.HandleFunc("POST /api/v1/uploads/presign", s.auth(s.presign))
	mux.HandleFunc("POST /api/v1/uploads/complete", s.auth(s.completeUpload))

	// Presigned targets carry their authorization in the URL, not a token.
	mux.HandleFunc("PUT /storage/{key...}", s.putObject)
	mux.HandleFunc("GET /files/{key...}", s.getObject)

	return s.recoverMW(s.loggingMW(mux))
}

// --- middleware ---

func (s *Server) loggingMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", r.RemoteAddr),
		)
	})
}

func (s *Server) recoverMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				s.writeErr(w, r, http.StatusInternalServerError, "internal")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type ctxKey string

const userIDKey ctxKey = "lh.userID"

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			s.writeErr(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.signKey, nil
		})
		if err != nil || !tok.Valid {
			s.writeErr(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		sub, err := tok.Claims.GetSubject()
		if err != nil || sub == "" {
			s.writeErr(w, r, http.StatusUnauthorized, "invalid token subject")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// --- envelope ---

func requestID() string {
	id, _ := uuid.NewV4()
	return id.String()
}

func (s *Server) writeData(w http.ResponseWriter, _ *http.Request, data any) {
	s.writeEnvelope(w, http.StatusOK, model.Envelope{RequestID: requestID()}, data)
}

func (s *Server) writeErr(w http.ResponseWriter, _ *http.Request, status int, msg string) {
	env := model.Envelope{Code: status, Message: msg, RequestID: requestID()}
	s.writeEnvelope(w, status, env, nil)
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, env model.Envelope, data any) {
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			status = http.StatusInternalServerError
			env = model.Envelope{Code: status, Message: "encode response", RequestID: env.RequestID}
		} else {
			env.Data = b
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", env.RequestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

// writeStoreErr maps store sentinels onto HTTP statuses.
func (s *Server) writeStoreErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.writeErr(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrVersionConflict):
		s.writeErr(w, r, http.StatusConflict, "version conflict")
	case errors.Is(err, errs.ErrValidation):
		s.writeErr(w, r, http.StatusBadRequest, err.Error())
	default:
		s.writeErr(w, r, http.StatusInternalServerError, "internal")
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body", errs.ErrValidation)
	}
	return nil
}

// --- auth handlers ---

func (s *Server) smsSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeBody(r, &req); err != nil || req.Phone == "" {
		s.writeErr(w, r, http.StatusBadRequest, "phone required")
		return
	}
	if ok, retry := s.limiter.Allow(req.Phone); !ok {
		s.writeErr(w, r, http.StatusTooManyRequests,
			fmt.Sprintf("too many codes, retry in %s", retry.Round(time.Second)))
		return
	}
	s.log.Info("sms code issued", zap.String("phone", req.Phone))
	s.writeData(w, r, map[string]bool{"sent": true})
}

func (s *Server) smsVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.Phone == "" || req.Code == "" {
		s.writeErr(w, r, http.StatusBadRequest, "phone and code required")
		return
	}
	// Any code verifies: there is no real SMS gateway behind the stub.
	s.issueTokens(w, r, s.store.UserByPhone(req.Phone))
}

func (s *Server) exchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.Code == "" {
		s.writeErr(w, r, http.StatusBadRequest, "code required")
		return
	}
	s.issueTokens(w, r, s.store.UserByPhone("ext:"+req.Code))
}

func (s *Server) googleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := decodeBody(r, &req); err != nil || req.IDToken == "" {
		s.writeErr(w, r, http.StatusBadRequest, "id_token required")
		return
	}
	s.issueTokens(w, r, s.store.UserByPhone("google:"+req.IDToken))
}

func (s *Server) issueTokens(w http.ResponseWriter, r *http.Request, uid string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		s.writeErr(w, r, http.StatusInternalServerError, "sign token")
		return
	}
	user, _ := s.store.User(uid)
	s.writeData(w, r, model.Tokens{
		AccessToken:  access,
		RefreshToken: requestID(),
		User:         &user,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.store.User(userID(r))
	if !ok {
		s.writeErr(w, r, http.StatusNotFound, "not found")
		return
	}
	s.writeData(w, r, user)
}

// --- collection handlers ---

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, s.store.Collections(userID(r)))
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		s.writeErr(w, r, http.StatusBadRequest, "name required")
		return
	}
	s.writeData(w, r, s.store.CreateCollection(userID(r), strings.TrimSpace(req.Name)))
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Collection(userID(r), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, c)
}

func (s *Server) renameCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		s.writeErr(w, r, http.StatusBadRequest, "name required")
		return
	}
	c, err := s.store.RenameCollection(userID(r), r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, c)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCollection(userID(r), r.PathValue("id")); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, map[string]bool{"deleted": true})
}

func (s *Server) collectionProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := s.store.CollectionProblems(userID(r), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	if problems == nil {
		problems = []model.Problem{}
	}
	s.writeData(w, r, problems)
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Collection(userID(r), id); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	jobID := s.runner.StartExport(s.jobCtx, userID(r), id, publicBase(r))
	s.writeData(w, r, map[string]string{"job_id": jobID})
}

// --- problem handlers ---

func (s *Server) createProblem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionID     string `json:"collection_id"`
		OriginalImageURL string `json:"original_image_url"`
		CroppedImageURL  string `json:"cropped_image_url"`
		OrderIndex       int    `json:"order_index"`
	}
	if err := decodeBody(r, &req); err != nil || req.CollectionID == "" || req.OriginalImageURL == "" {
		s.writeErr(w, r, http.StatusBadRequest, "collection_id and original_image_url required")
		return
	}
	p, err := s.store.CreateProblem(userID(r), model.Problem{
		CollectionID:     req.CollectionID,
		OriginalImageURL: req.OriginalImageURL,
		CroppedImageURL:  req.CroppedImageURL,
		OrderIndex:       req.OrderIndex,
	})
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, p)
}

func (s *Server) getProblem(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Problem(userID(r), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, p)
}

func (s *Server) updateProblem(w http.ResponseWriter, r *http.Request) {
	var patch model.ProblemPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	if patch.Version <= 0 {
		s.writeErr(w, r, http.StatusBadRequest, "version required")
		return
	}
	p, err := s.store.UpdateProblem(userID(r), r.PathValue("id"), patch)
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, p)
}

func (s *Server) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProblem(userID(r), r.PathValue("id")); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, map[string]bool{"deleted": true})
}

func (s *Server) requestOCR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"image_url"`
	}
	if err := decodeBody(r, &req); err != nil || req.ImageURL == "" {
		s.writeErr(w, r, http.StatusBadRequest, "image_url required")
		return
	}
	id := r.PathValue("id")
	if _, err := s.store.Problem(userID(r), id); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	jobID := s.runner.StartOCR(s.jobCtx, userID(r), id, req.ImageURL)
	s.writeData(w, r, map[string]string{"job_id": jobID})
}

// --- job handlers ---

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.store.Job(userID(r), r.PathValue("id"))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.writeData(w, r, j)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, s.store.WorkflowRuns(userID(r)))
}

// --- upload handlers ---

func publicBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) presign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}
	if err := decodeBody(r, &req); err != nil || req.Filename == "" {
		s.writeErr(w, r, http.StatusBadRequest, "filename required")
		return
	}
	key := "uploads/" + requestID() + path.Ext(req.Filename)
	s.writeData(w, r, model.UploadTicket{
		ObjectKey: key,
		URL:       publicBase(r) + "/storage/" + key,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": req.ContentType},
	})
}

func (s *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ObjectKey string `json:"object_key"`
	}
	if err := decodeBody(r, &req); err != nil || req.ObjectKey == "" {
		s.writeErr(w, r, http.StatusBadRequest, "object_key required")
		return
	}
	if _, ok := s.store.Object(req.ObjectKey); !ok {
		s.writeErr(w, r, http.StatusNotFound, "object not uploaded")
		return
	}
	s.writeData(w, r, map[string]string{"url": publicBase(r) + "/files/" + req.ObjectKey})
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	s.store.PutObject(r.PathValue("key"), blob)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	blob, ok := s.store.Object(r.PathValue("key"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(blob); err != nil {
		s.log.Warn("write object", zap.Error(err))
	}
}
