// Package upload implements the three-step presigned upload protocol:
// presign, direct transfer to object storage, completion confirmation.
// Steps are strictly sequential; a failed step aborts the pipeline with no
// cleanup of already-created storage objects.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/model"
)

// ErrIncompleteTicket signals a presign response missing object_key or url.
var ErrIncompleteTicket = errors.New("upload: presign response missing object_key or url")

// File describes the binary being uploaded.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Pipeline orchestrates presign, transfer and complete. The transfer step
// talks to the storage endpoint directly and never carries the API bearer
// token.
type Pipeline struct {
	api      *api.Client
	transfer *resty.Client
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTransferTimeout bounds the direct storage transfer.
func WithTransferTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.transfer.SetTimeout(d)
		}
	}
}

// New constructs a Pipeline over the given API client.
func New(apiClient *api.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:      apiClient,
		transfer: resty.New().SetTimeout(2 * time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload runs the full pipeline and returns the stable public URL of the
// uploaded object.
func (p *Pipeline) Upload(ctx context.Context, f File) (string, error) {
	if f.Name == "" || f.Content == nil {
		return "", fmt.Errorf("upload: missing file")
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ticket, err := p.presign(ctx, f.Name, contentType, f.Size)
	if err != nil {
		return "", err
	}
	if err := p.send(ctx, ticket, f, contentType); err != nil {
		return "", err
	}
	return p.complete(ctx, ticket.ObjectKey)
}

func (p *Pipeline) presign(ctx context.Context, name, contentType string, size int64) (*model.UploadTicket, error) {
	ticket, err := api.DoAs[model.UploadTicket](ctx, p.api, "/api/v1/uploads/presign", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
		Body: map[string]any{
			"filename":     name,
			"content_type": contentType,
			"size":         size,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload: presign: %w", err)
	}
	if ticket == nil || ticket.ObjectKey == "" || ticket.URL == "" {
		return nil, ErrIncompleteTicket
	}
	return ticket, nil
}

// send transfers the binary. A ticket with form fields means a multipart
// POST with the fields first and the file appended last; otherwise a direct
// body upload with the ticket's method (default PUT) and headers.
func (p *Pipeline) send(ctx context.Context, ticket *model.UploadTicket, f File, contentType string) error {
	if len(ticket.Fields) > 0 {
		return p.sendMultipart(ctx, ticket, f)
	}

	method := ticket.Method
	if method == "" {
		method = http.MethodPut
	}
	req := p.transfer.R().SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(f.Content)
	for k, v := range ticket.Headers {
		req.SetHeader(k, v)
	}
	resp, err := req.Execute(method, ticket.URL)
	if err != nil {
		return fmt.Errorf("upload: transfer: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload: transfer failed (%d)", resp.StatusCode())
	}
	return nil
}

func (p *Pipeline) sendMultipart(ctx context.Context, ticket *model.UploadTicket, f File) error {
	// The form is built by hand so the presigned fields always precede the
	// binary part, which some storage providers require.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range ticket.Fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("upload: build form: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return fmt.Errorf("upload: read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload: build form: %w", err)
	}

	resp, err := p.transfer.R().
		SetContext(ctx).
		SetHeader("Content-Type", w.FormDataContentType()).
		SetBody(buf.Bytes()).
		Post(ticket.URL)
	if err != nil {
		return fmt.Errorf("upload: transfer: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload: transfer failed (%d)", resp.StatusCode())
	}
	return nil
}

func (p *Pipeline) complete(ctx context.Context, objectKey string) (string, error) {
	out, err := api.DoAs[struct {
		URL string `json:"url"`
	}](ctx, p.api, "/api/v1/uploads/complete", api.Options{
		Method:       http.MethodPost,
		AuthRequired: true,
		Body:         map[string]string{"object_key": objectKey},
	})
	if err != nil {
		return "", fmt.Errorf("upload: complete: %w", err)
	}
	if out == nil || out.URL == "" {
		return "", errors.New("upload: complete response missing url")
	}
	return out.URL, nil
}
