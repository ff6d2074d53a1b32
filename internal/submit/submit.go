// Package submit forwards validated solution drafts to the learning
// platform.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/logging"
)

// DefaultTimeout bounds a single forward request.
const DefaultTimeout = 10 * time.Second

// ErrNoEndpoint is returned when an HTTP submitter has no endpoint.
var ErrNoEndpoint = errors.New("submit: endpoint is required")

// Submitter delivers a draft for one lesson.
type Submitter interface {
	Submit(ctx context.Context, lesson model.Lesson, draft model.SubmissionDraft) error
}

// StatusError reports a non-2xx response from the submission endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("submit: endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("submit: endpoint returned %d: %s", e.StatusCode, e.Message)
}

// Payload is the JSON body posted to the submission endpoint.
type Payload struct {
	Lesson string `json:"lesson"`
	model.SubmissionDraft
}

// HTTPSubmitter posts drafts as JSON to Endpoint.
type HTTPSubmitter struct {
	Endpoint string
	Client   *http.Client
	Logger   *logging.Logger
}

// NewHTTPSubmitter builds an HTTPSubmitter with its own client timeout.
func NewHTTPSubmitter(endpoint string, timeout time.Duration, logger *logging.Logger) (*HTTPSubmitter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSubmitter{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		Logger:   logger,
	}, nil
}

// Submit posts the draft and maps non-2xx responses to *StatusError.
func (s *HTTPSubmitter) Submit(ctx context.Context, lesson model.Lesson, draft model.SubmissionDraft) error {
	if s == nil || strings.TrimSpace(s.Endpoint) == "" {
		return ErrNoEndpoint
	}
	body, err := json.Marshal(Payload{Lesson: lesson.Slug, SubmissionDraft: draft})
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	requestID := logging.RequestIDFromContext(ctx)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("submit solution: %w", err)
	}
	defer resp.Body.Close()

	s.Logger.WithRequestID(requestID).
		WithCategory("submit").
		WithFields(map[string]any{
			"lesson":      lesson.Slug,
			"status":      resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}).
		Info("forwarded submission")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LogSubmitter records drafts in the log without forwarding them. It is
// used when no endpoint is configured.
type LogSubmitter struct {
	Logger *logging.Logger
}

// Submit logs the draft and always succeeds.
func (s LogSubmitter) Submit(ctx context.Context, lesson model.Lesson, draft model.SubmissionDraft) error {
	s.Logger.WithRequestID(logging.RequestIDFromContext(ctx)).
		WithCategory("submit").
		WithFields(map[string]any{
			"lesson":           lesson.Slug,
			"repo_url":         draft.RepoURL,
			"live_preview_url": draft.LivePreviewURL,
			"is_public":        draft.IsPublic,
		}).
		Info("solution received")
	return nil
}

// Func adapts a Submitter into the per-form submit callback for lesson.
func Func(s Submitter, lesson model.Lesson) func(context.Context, model.SubmissionDraft) error {
	return func(ctx context.Context, draft model.SubmissionDraft) error {
		return s.Submit(ctx, lesson, draft)
	}
}
