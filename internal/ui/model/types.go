package model

// Field names used as form input names, JSON keys and error keys.
const (
	FieldRepoURL        = "repo_url"
	FieldLivePreviewURL = "live_preview_url"
	FieldIsPublic       = "is_public"
)

// Lesson carries the lesson capabilities the submission form depends on.
type Lesson struct {
	Slug           string `json:"slug" mapstructure:"slug"`
	Title          string `json:"title" mapstructure:"title"`
	HasLivePreview bool   `json:"has_live_preview" mapstructure:"has_live_preview"`
}

// RawFields holds the unvalidated text typed into the form.
type RawFields struct {
	RepoURL        string
	LivePreviewURL string
}

// SubmissionDraft is the payload handed to the submit handler.
type SubmissionDraft struct {
	RepoURL        string `json:"repo_url"`
	LivePreviewURL string `json:"live_preview_url"`
	IsPublic       bool   `json:"is_public"`
}

// FieldErrors maps a field name to the message shown under it.
type FieldErrors map[string]string

// Has reports whether the named field carries an error.
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Get returns the message for field, or "".
func (e FieldErrors) Get(field string) string {
	return e[field]
}

// Empty reports whether there are no field errors.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Clone returns a copy safe to hand to renderers.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Phase is the position of a form in its submit lifecycle.
type Phase int

const (
	// PhaseEditing is the initial phase; fields may change.
	PhaseEditing Phase = iota
	// PhaseInvalid is editing with errors from the last submit attempt.
	PhaseInvalid
	// PhaseSubmitting means the submit handler is running.
	PhaseSubmitting
	// PhaseSucceeded means the submit handler returned without error.
	PhaseSucceeded
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseInvalid:
		return "invalid"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// FormView is a read-only snapshot of a form used by renderers.
type FormView struct {
	ID              string
	Phase           Phase
	Lesson          Lesson
	RepoURL         string
	LivePreviewURL  string
	IsPublic        bool
	Errors          FieldErrors
	FormError       string
	ShowLivePreview bool
	SubmitDisabled  bool
	Succeeded       bool
}
