package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Its-donkey/solution-submit/internal/submit"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/internal/ui/state"
	"github.com/Its-donkey/solution-submit/logging"
)

// ErrUnknownForm is reported when a token does not match an open form.
var ErrUnknownForm = errors.New("server: unknown submission form")

// Options configures the submission form HTTP server.
type Options struct {
	Listen    string
	ReturnURL string
	Lessons   map[string]model.Lesson
	Submitter submit.Submitter
	Logger    *logging.Logger
	Tracer    trace.Tracer
	Registry  *state.Registry
	FormTTL   time.Duration
}

type server struct {
	templates   map[string]*template.Template
	registry    *state.Registry
	lessons     map[string]model.Lesson
	submitter   submit.Submitter
	logger      *logging.Logger
	tracer      trace.Tracer
	returnURL   string
	currentYear int
}

func newServer(opts Options) (*server, error) {
	opts = applyDefaults(opts)
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return &server{
		templates:   tmpl,
		registry:    opts.Registry,
		lessons:     opts.Lessons,
		submitter:   opts.Submitter,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		returnURL:   opts.ReturnURL,
		currentYear: time.Now().Year(),
	}, nil
}

// NewHandler builds the HTTP handler serving the submission form routes.
func NewHandler(opts Options) (http.Handler, error) {
	srv, err := newServer(opts)
	if err != nil {
		return nil, err
	}
	return srv.routes(), nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lessons/{lesson}/submission", s.handleOpen)
	mux.HandleFunc("POST /submission", s.handleSubmit)
	mux.HandleFunc("GET /submission/{token}", s.handleShow)
	mux.HandleFunc("POST /submission/{token}/close", s.handleClose)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logging.NewHTTPLogger(s.logger).Middleware(mux)
}

// Run starts the submission form server and blocks until ctx is done or
// the listener fails.
func Run(ctx context.Context, opts Options) error {
	opts = applyDefaults(opts)
	srv, err := newServer(opts)
	if err != nil {
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go srv.registry.Run(sweepCtx, 0)

	server := &http.Server{
		Addr:              opts.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	srv.logger.Info("general", "serving submission form", map[string]any{
		"listen":  opts.Listen,
		"lessons": len(opts.Lessons),
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"forms":  s.registry.Len(),
	})
}

func (s *server) lesson(slug string) (model.Lesson, bool) {
	lesson, ok := s.lessons[strings.ToLower(strings.TrimSpace(slug))]
	return lesson, ok
}
