// Package model defines domain entities exchanged with the LearnHub backend.
package model

import "encoding/json"

// Job status values. Success and Failed are terminal: no further transition
// occurs for that job id.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobSuccess = "success"
	JobFailed  = "failed"
)

// JobTerminal reports whether a job status admits no further transitions.
func JobTerminal(status string) bool {
	return status == JobSuccess || status == JobFailed
}

// AuthUser is the authenticated account identity. All fields are optional:
// a locally stored token without a profile fetch yields a placeholder user.
type AuthUser struct {
	ID       string `json:"id,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// Tokens collects issued access/refresh tokens. RefreshToken is modeled but
// never exchanged by this client; it is persisted for forward compatibility.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *AuthUser `json:"user,omitempty"`
}

// Collection groups problems. ProblemCount is server-reported, never
// maintained locally.
type Collection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProblemCount int    `json:"problem_count,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Problem is a captured mistaken exam/homework problem. Version is the
// optimistic concurrency token: every update must echo the last-known value,
// and only the server advances it.
type Problem struct {
	ID               string   `json:"id"`
	Status           string   `json:"status,omitempty"`
	OriginalImageURL string   `json:"original_image_url,omitempty"`
	CroppedImageURL  string   `json:"cropped_image_url,omitempty"`
	OCRText          string   `json:"ocr_text,omitempty"`
	Note             string   `json:"note,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	OrderIndex       int      `json:"order_index"`
	CollectionID     string   `json:"collection_id,omitempty"`
	Version          int64    `json:"version"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
}

// ProblemPatch is the mutable subset of a Problem sent on update, plus the
// required base version.
type ProblemPatch struct {
	OCRText      *string  `json:"ocr_text"`
	Note         *string  `json:"note"`
	Tags         []string `json:"tags"`
	OrderIndex   int      `json:"order_index"`
	CollectionID *string  `json:"collection_id"`
	Version      int64    `json:"version"`
}

// Job is a transient async backend task (OCR, PDF export). Its terminal
// payload is absorbed into Collection/Problem state via cache invalidation,
// not retained.
type Job struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// WorkflowRun mirrors the workflows page listing.
type WorkflowRun struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// UploadTicket is the transient presigned-upload handshake. It exists only
// for the duration of one upload and is never persisted.
type UploadTicket struct {
	ObjectKey string            `json:"object_key"`
	URL       string            `json:"url"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Envelope is the optional uniform wire wrapper. Code != 0 is a logical
// failure regardless of HTTP status.
type Envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id,omitempty"`
}
