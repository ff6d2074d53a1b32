// Package forms holds the solution submission form controller: the
// visibility toggle, field validation and the submit lifecycle shared by
// the HTML and terminal renderers.
package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/logging"
)

const tracerName = "github.com/Its-donkey/solution-submit/internal/ui/forms"

var (
	// ErrMissingSubmit is returned by New when Options.OnSubmit is nil.
	ErrMissingSubmit = errors.New("forms: submit handler is required")
	// ErrMissingClose is returned by New when Options.OnClose is nil.
	ErrMissingClose = errors.New("forms: close handler is required")
	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission is still pending.
	ErrSubmissionInFlight = errors.New("forms: submission already in flight")
	// ErrAlreadySubmitted is returned when Submit is called after success.
	ErrAlreadySubmitted = errors.New("forms: solution already submitted")
)

// ValidationError carries the field errors that blocked a submission.
type ValidationError struct {
	Errors model.FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, field := range []string{model.FieldRepoURL, model.FieldLivePreviewURL} {
		if e.Errors.Has(field) {
			fields = append(fields, field)
		}
	}
	return "forms: invalid fields: " + strings.Join(fields, ", ")
}

// SubmitError wraps a failure returned by the submit handler.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("forms: submit handler failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// SubmitFunc receives the validated draft. A nil return moves the form to
// the succeeded phase.
type SubmitFunc func(ctx context.Context, draft model.SubmissionDraft) error

// Options configures a Controller.
type Options struct {
	ID       string
	OnSubmit SubmitFunc
	OnClose  func()
	Logger   *logging.Logger
	Tracer   trace.Tracer
}

// Controller owns the state of one submission form. It is safe for
// concurrent use.
type Controller struct {
	id       string
	lesson   model.Lesson
	onSubmit SubmitFunc
	onClose  func()
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu           sync.Mutex
	phase        model.Phase
	isPublic     bool
	fields       model.RawFields
	errors       model.FieldErrors
	formError    string
	lastActivity time.Time

	closeOnce sync.Once
}

// New builds a controller for lesson. Both callbacks are required.
func New(lesson model.Lesson, opts Options) (*Controller, error) {
	if opts.OnSubmit == nil {
		return nil, ErrMissingSubmit
	}
	if opts.OnClose == nil {
		return nil, ErrMissingClose
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	c := &Controller{
		id:       id,
		lesson:   lesson,
		onSubmit: opts.OnSubmit,
		onClose:  opts.OnClose,
		logger:   opts.Logger,
		tracer:   tracer,
		now:      time.Now,
		phase:    model.PhaseEditing,
		isPublic: true,
	}
	c.lastActivity = c.now()
	return c, nil
}

// ID identifies the form.
func (c *Controller) ID() string {
	return c.id
}

// Lesson returns the lesson the form was opened for.
func (c *Controller) Lesson() model.Lesson {
	return c.lesson
}

// LastActivity reports when the form last changed state.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Phase reports the current lifecycle phase.
func (c *Controller) Phase() model.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ToggleVisibility flips the public/private flag and returns the new value.
// It does not validate or touch errors.
func (c *Controller) ToggleVisibility() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isPublic = !c.isPublic
	c.lastActivity = c.now()
	return c.isPublic
}

// SetFields records typed values without validating them. It is ignored
// once the form has succeeded.
func (c *Controller) SetFields(raw model.RawFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == model.PhaseSucceeded {
		return
	}
	c.fields = c.normalise(raw)
	c.lastActivity = c.now()
}

// Submit validates raw, merges the toggle state and hands the draft to the
// submit handler. The handler runs outside the lock with a context that is
// never cancelled by the controller.
func (c *Controller) Submit(ctx context.Context, raw model.RawFields) (model.SubmissionDraft, error) {
	c.mu.Lock()
	switch c.phase {
	case model.PhaseSubmitting:
		c.mu.Unlock()
		return model.SubmissionDraft{}, ErrSubmissionInFlight
	case model.PhaseSucceeded:
		c.mu.Unlock()
		return model.SubmissionDraft{}, ErrAlreadySubmitted
	}

	c.fields = c.normalise(raw)
	c.formError = ""
	c.lastActivity = c.now()
	draft, errs := Validate(c.lesson, c.fields)
	if !errs.Empty() {
		c.phase = model.PhaseInvalid
		c.errors = errs
		c.mu.Unlock()
		c.logger.Debug("forms", "submission blocked by validation", map[string]any{
			"form_id": c.id,
			"fields":  len(errs),
		})
		return model.SubmissionDraft{}, &ValidationError{Errors: errs.Clone()}
	}
	draft.IsPublic = c.isPublic
	c.errors = nil
	c.phase = model.PhaseSubmitting
	c.mu.Unlock()

	spanCtx, span := c.tracer.Start(context.WithoutCancel(ctx), "forms.Submit",
		trace.WithAttributes(
			attribute.String("form.id", c.id),
			attribute.String("lesson.slug", c.lesson.Slug),
			attribute.Bool("submission.is_public", draft.IsPublic),
			attribute.Bool("submission.has_live_preview", draft.LivePreviewURL != ""),
		))
	err := c.dispatch(spanCtx, draft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit handler failed")
	}
	span.End()

	c.mu.Lock()
	c.lastActivity = c.now()
	if err != nil {
		c.phase = model.PhaseEditing
		c.formError = i18n.T("form.submit_failed")
		c.mu.Unlock()
		c.logger.WithRequestID(logging.RequestIDFromContext(ctx)).
			WithCategory("forms").
			WithField("form_id", c.id).
			WithField("lesson", c.lesson.Slug).
			Error("submission failed", err)
		return draft, &SubmitError{Err: err}
	}
	c.phase = model.PhaseSucceeded
	c.mu.Unlock()
	c.logger.WithRequestID(logging.RequestIDFromContext(ctx)).
		WithCategory("forms").
		WithFields(map[string]any{
			"form_id":   c.id,
			"lesson":    c.lesson.Slug,
			"is_public": draft.IsPublic,
		}).
		Info("solution submitted")
	return draft, nil
}

// dispatch runs the submit handler and reports a panic as an error so the
// form never stays in the submitting phase.
func (c *Controller) dispatch(ctx context.Context, draft model.SubmissionDraft) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submit handler panicked: %v", r)
		}
	}()
	return c.onSubmit(ctx, draft)
}

// Close runs the close handler the first time it is called and reports
// whether this call ran it.
func (c *Controller) Close() bool {
	fired := false
	c.closeOnce.Do(func() {
		fired = true
		c.onClose()
	})
	return fired
}

// View returns a snapshot of the form for rendering.
func (c *Controller) View() model.FormView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.FormView{
		ID:              c.id,
		Phase:           c.phase,
		Lesson:          c.lesson,
		RepoURL:         c.fields.RepoURL,
		LivePreviewURL:  c.fields.LivePreviewURL,
		IsPublic:        c.isPublic,
		Errors:          c.errors.Clone(),
		FormError:       c.formError,
		ShowLivePreview: c.lesson.HasLivePreview,
		SubmitDisabled:  c.phase == model.PhaseSubmitting,
		Succeeded:       c.phase == model.PhaseSucceeded,
	}
}

func (c *Controller) normalise(raw model.RawFields) model.RawFields {
	if !c.lesson.HasLivePreview {
		raw.LivePreviewURL = ""
	}
	return raw
}
