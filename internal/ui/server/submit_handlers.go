package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/submit"
	"github.com/Its-donkey/solution-submit/internal/ui/forms"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/logging"
)

const (
	actionSubmit           = "submit"
	actionToggleVisibility = "toggle-visibility"
)

// handleOpen creates a form for the lesson and redirects to it.
func (s *server) handleOpen(w http.ResponseWriter, r *http.Request) {
	lesson, ok := s.lesson(r.PathValue("lesson"))
	if !ok {
		s.renderNotFound(w, r)
		return
	}

	token := uuid.NewString()
	form, err := forms.New(lesson, forms.Options{
		ID:       token,
		OnSubmit: submit.Func(s.submitter, lesson),
		OnClose:  func() { s.registry.Remove(token) },
		Logger:   s.logger,
		Tracer:   s.tracer,
	})
	if err != nil {
		s.logger.Error("submission", "create form", err, map[string]any{"lesson": lesson.Slug})
		http.Error(w, "could not open submission form", http.StatusInternalServerError)
		return
	}
	s.registry.Add(form)
	s.logger.WithRequestID(logging.RequestIDFromContext(r.Context())).
		WithCategory("submission").
		WithFields(map[string]any{"lesson": lesson.Slug, "form_id": token}).
		Info("submission form opened")
	http.Redirect(w, r, formPath(token), http.StatusSeeOther)
}

// handleShow renders the current view of a form.
func (s *server) handleShow(w http.ResponseWriter, r *http.Request) {
	form, ok := s.registry.Get(r.PathValue("token"))
	if !ok {
		s.renderNotFound(w, r)
		return
	}
	s.renderForm(w, r, form.View(), http.StatusOK)
}

// handleSubmit serves both the visibility toggle and the submit action.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	token := strings.TrimSpace(r.PostForm.Get("token"))
	form, ok := s.registry.Get(token)
	if !ok {
		s.renderNotFound(w, r)
		return
	}
	raw := parseRawFields(r)
	action := strings.TrimSpace(r.PostForm.Get("action"))
	if action == "" {
		action = actionSubmit
	}

	switch action {
	case actionToggleVisibility:
		if form.View().Succeeded {
			http.Redirect(w, r, formPath(token), http.StatusSeeOther)
			return
		}
		form.SetFields(raw)
		form.ToggleVisibility()
		s.renderForm(w, r, form.View(), http.StatusOK)
		return
	case actionSubmit:
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	_, err := form.Submit(r.Context(), raw)
	var (
		validationErr *forms.ValidationError
		submitErr     *forms.SubmitError
	)
	switch {
	case err == nil, errors.Is(err, forms.ErrAlreadySubmitted):
		http.Redirect(w, r, formPath(token), http.StatusSeeOther)
	case errors.As(err, &validationErr):
		s.renderForm(w, r, form.View(), http.StatusUnprocessableEntity)
	case errors.Is(err, forms.ErrSubmissionInFlight):
		view := form.View()
		view.FormError = i18n.T("form.in_flight")
		s.renderForm(w, r, view, http.StatusConflict)
	case errors.As(err, &submitErr):
		s.renderForm(w, r, form.View(), http.StatusBadGateway)
	default:
		s.logger.Error("submission", "unexpected submit error", err, map[string]any{"form_id": token})
		http.Error(w, "submission failed", http.StatusInternalServerError)
	}
}

// handleClose runs the form's close action and leaves the form flow.
func (s *server) handleClose(w http.ResponseWriter, r *http.Request) {
	form, ok := s.registry.Get(r.PathValue("token"))
	if !ok {
		s.renderNotFound(w, r)
		return
	}
	form.Close()
	http.Redirect(w, r, s.returnURL, http.StatusSeeOther)
}

func parseRawFields(r *http.Request) model.RawFields {
	return model.RawFields{
		RepoURL:        r.PostForm.Get(model.FieldRepoURL),
		LivePreviewURL: r.PostForm.Get(model.FieldLivePreviewURL),
	}
}
