package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/Its-donkey/solution-submit/internal/ui/model"
	"github.com/Its-donkey/solution-submit/logging"
)

type stubSubmitter struct {
	mu      sync.Mutex
	drafts  []model.SubmissionDraft
	lessons []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubSubmitter) Submit(_ context.Context, lesson model.Lesson, draft model.SubmissionDraft) error {
	s.mu.Lock()
	s.drafts = append(s.drafts, draft)
	s.lessons = append(s.lessons, lesson.Slug)
	err := s.err
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	return err
}

func (s *stubSubmitter) calls() []model.SubmissionDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SubmissionDraft(nil), s.drafts...)
}

func newTestHandler(t *testing.T, sub *stubSubmitter) http.Handler {
	t.Helper()
	h, err := NewHandler(Options{
		ReturnURL: "/lessons/intro",
		Lessons: map[string]model.Lesson{
			"intro":  {Title: "Intro to HTML", HasLivePreview: true},
			"basics": {Title: "Go basics"},
		},
		Submitter: sub,
		Logger:    logging.New("test", logging.INFO, io.Discard),
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func openForm(t *testing.T, h http.Handler, lesson string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/lessons/"+lesson+"/submission", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect when opening form, got %d", rr.Code)
	}
	location := rr.Header().Get("Location")
	token := strings.TrimPrefix(location, "/submission/")
	if token == "" || token == location {
		t.Fatalf("unexpected form location %q", location)
	}
	return token
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submission", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func getPath(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func parseDoc(t *testing.T, rr *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rr.Body.String()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestOpenUnknownLesson(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	rr := getPath(h, "/lessons/missing/submission")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestShowUnknownToken(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	if rr := getPath(h, "/submission/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr := postForm(h, url.Values{"token": {"nope"}, "repo_url": {"https://github.com/x/y"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token submit, got %d", rr.Code)
	}
}

func TestFormRendersFieldsForLiveLesson(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	token := openForm(t, h, "intro")

	rr := getPath(h, "/submission/"+token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	doc := parseDoc(t, rr)
	if got := strings.TrimSpace(doc.Find("h2").First().Text()); got != "Upload Your Project" {
		t.Fatalf("unexpected heading %q", got)
	}
	repo := doc.Find(`[data-test-id="repo-url-field"]`)
	if repo.Length() != 1 {
		t.Fatalf("expected repo url field")
	}
	if id, _ := repo.Attr("id"); id != "repo_url" {
		t.Fatalf("expected repo_url id, got %q", id)
	}
	if doc.Find(`[data-test-id="live-preview-url-field"]`).Length() != 1 {
		t.Fatalf("expected live preview field for live lesson")
	}
	if doc.Find(`[data-test-id="error-message"]`).Length() != 0 {
		t.Fatalf("expected no errors on a fresh form")
	}
	if _, disabled := doc.Find(`[data-test-id="submit-btn"]`).Attr("disabled"); disabled {
		t.Fatalf("expected submit to be enabled")
	}
	if !strings.Contains(doc.Find(".form-toggle").Text(), "MAKE SOLUTION PUBLIC") {
		t.Fatalf("expected toggle label")
	}
	if checked, _ := doc.Find(`[role="switch"]`).Attr("aria-checked"); checked != "true" {
		t.Fatalf("expected toggle to default to public, got %q", checked)
	}
	if v, _ := doc.Find(`input[name="token"]`).Attr("value"); v != token {
		t.Fatalf("expected token %q in form, got %q", token, v)
	}
}

func TestInvalidRepoURLShowsErrorAndSkipsSubmit(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "intro")

	for _, raw := range []string{"", "github.com/x/y"} {
		rr := postForm(h, url.Values{"token": {token}, "action": {"submit"}, "repo_url": {raw}})
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for %q, got %d", raw, rr.Code)
		}
		doc := parseDoc(t, rr)
		errEl := doc.Find(`#repo_url-error[data-test-id="error-message"]`)
		if errEl.Length() != 1 {
			t.Fatalf("expected error under repo url for %q", raw)
		}
		if v, _ := doc.Find(`[data-test-id="repo-url-field"]`).Attr("value"); v != raw {
			t.Fatalf("expected typed value to be kept, got %q", v)
		}
	}
	if len(sub.calls()) != 0 {
		t.Fatalf("expected submitter not to be called, got %d", len(sub.calls()))
	}
}

func TestNoLivePreviewFieldWithoutCapability(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "basics")

	rr := postForm(h, url.Values{
		"token":            {token},
		"repo_url":         {"nope"},
		"live_preview_url": {"also nope"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	doc := parseDoc(t, rr)
	if doc.Find(`[data-test-id="live-preview-url-field"]`).Length() != 0 {
		t.Fatalf("expected no live preview field")
	}
	if doc.Find(`#live_preview_url-error`).Length() != 0 {
		t.Fatalf("expected no live preview error")
	}
	if doc.Find(`[data-test-id="error-message"]`).Length() != 1 {
		t.Fatalf("expected only the repo url error")
	}

	rr = postForm(h, url.Values{
		"token":            {token},
		"repo_url":         {"https://github.com/x/y"},
		"live_preview_url": {"also nope"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after valid submit, got %d", rr.Code)
	}
	calls := sub.calls()
	if len(calls) != 1 || calls[0].LivePreviewURL != "" {
		t.Fatalf("unexpected drafts %+v", calls)
	}
}

func TestSubmitForwardsDraftAndShowsSuccess(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "intro")

	rr := postForm(h, url.Values{
		"token":            {token},
		"action":           {"submit"},
		"repo_url":         {"https://github.com/x/y"},
		"live_preview_url": {""},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/submission/"+token {
		t.Fatalf("unexpected redirect %q", loc)
	}
	want := model.SubmissionDraft{RepoURL: "https://github.com/x/y", LivePreviewURL: "", IsPublic: true}
	calls := sub.calls()
	if len(calls) != 1 || calls[0] != want {
		t.Fatalf("expected exactly %+v, got %+v", want, calls)
	}
	if sub.lessons[0] != "intro" {
		t.Fatalf("expected lesson intro, got %q", sub.lessons[0])
	}

	doc := parseDoc(t, getPath(h, "/submission/"+token))
	if got := strings.TrimSpace(doc.Find(`[data-test-id="success-message"]`).Text()); got != "Thanks for Submitting Your Solution!" {
		t.Fatalf("unexpected success message %q", got)
	}
	if doc.Find(`[data-test-id="close-btn"]`).Length() != 1 {
		t.Fatalf("expected close button")
	}
	for _, seam := range []string{"repo-url-field", "live-preview-url-field", "submit-btn"} {
		if doc.Find(`[data-test-id="` + seam + `"]`).Length() != 0 {
			t.Fatalf("expected %s to be gone after success", seam)
		}
	}

	// A repeated submit does not dispatch again.
	rr = postForm(h, url.Values{"token": {token}, "repo_url": {"https://github.com/x/z"}})
	if rr.Code != http.StatusSeeOther || len(sub.calls()) != 1 {
		t.Fatalf("expected resubmit to redirect without dispatch, got %d and %d calls", rr.Code, len(sub.calls()))
	}
}

func TestCloseRedirectsAndForgetsForm(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	token := openForm(t, h, "intro")
	postForm(h, url.Values{"token": {token}, "repo_url": {"https://github.com/x/y"}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/submission/"+token+"/close", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/lessons/intro" {
		t.Fatalf("unexpected return url %q", loc)
	}
	if rr := getPath(h, "/submission/"+token); rr.Code != http.StatusNotFound {
		t.Fatalf("expected closed form to be gone, got %d", rr.Code)
	}
}

func TestToggleVisibilityRoundTrip(t *testing.T) {
	sub := &stubSubmitter{}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "intro")

	rr := postForm(h, url.Values{
		"token":    {token},
		"action":   {"toggle-visibility"},
		"repo_url": {"https://github.com/x/y"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	doc := parseDoc(t, rr)
	if checked, _ := doc.Find(`[role="switch"]`).Attr("aria-checked"); checked != "false" {
		t.Fatalf("expected private after one toggle, got %q", checked)
	}
	if v, _ := doc.Find(`[data-test-id="repo-url-field"]`).Attr("value"); v != "https://github.com/x/y" {
		t.Fatalf("expected typed value to survive toggle, got %q", v)
	}
	if doc.Find(`[data-test-id="error-message"]`).Length() != 0 {
		t.Fatalf("toggle must not validate")
	}

	postForm(h, url.Values{"token": {token}, "repo_url": {"https://github.com/x/y"}})
	calls := sub.calls()
	if len(calls) != 1 || calls[0].IsPublic {
		t.Fatalf("expected a private draft, got %+v", calls)
	}
}

func TestSubmitFailureRendersBadGateway(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("upstream down")}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "intro")

	rr := postForm(h, url.Values{"token": {token}, "repo_url": {"https://github.com/x/y"}})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	doc := parseDoc(t, rr)
	if got := strings.TrimSpace(doc.Find(`[data-test-id="form-error"]`).Text()); got != "We couldn't submit your solution. Please try again." {
		t.Fatalf("unexpected form error %q", got)
	}
	if _, disabled := doc.Find(`[data-test-id="submit-btn"]`).Attr("disabled"); disabled {
		t.Fatalf("expected submit to be re-enabled")
	}
	if v, _ := doc.Find(`[data-test-id="repo-url-field"]`).Attr("value"); v != "https://github.com/x/y" {
		t.Fatalf("expected value to be kept, got %q", v)
	}
}

func TestSubmitWhilePendingIsRejected(t *testing.T) {
	sub := &stubSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	h := newTestHandler(t, sub)
	token := openForm(t, h, "intro")
	values := url.Values{"token": {token}, "repo_url": {"https://github.com/x/y"}}

	first := make(chan int, 1)
	go func() {
		first <- postForm(h, values).Code
	}()
	<-sub.started

	rr := postForm(h, values)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	doc := parseDoc(t, rr)
	if _, disabled := doc.Find(`[data-test-id="submit-btn"]`).Attr("disabled"); !disabled {
		t.Fatalf("expected submit to be disabled while pending")
	}

	close(sub.release)
	if code := <-first; code != http.StatusSeeOther {
		t.Fatalf("expected first submit to succeed, got %d", code)
	}
	if n := len(sub.calls()); n != 1 {
		t.Fatalf("expected one dispatch, got %d", n)
	}
}

func TestUnknownAction(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	token := openForm(t, h, "intro")
	rr := postForm(h, url.Values{"token": {token}, "action": {"explode"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	openForm(t, h, "intro")

	rr := getPath(h, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	var body struct {
		Status string `json:"status"`
		Forms  int    `json:"forms"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Forms != 1 {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestEnterSubmitsByDefault(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	token := openForm(t, h, "intro")

	doc := parseDoc(t, getPath(h, "/submission/"+token))
	first := doc.Find(`form button[type="submit"]`).First()
	if v, _ := first.Attr("value"); v != "submit" {
		t.Fatalf("expected the default submit button to submit, got action %q", v)
	}
	if id, _ := first.Attr("data-test-id"); id != "submit-btn" {
		t.Fatalf("expected submit-btn to be the default button, got %q", id)
	}
}

func TestOpenLessonIgnoresCase(t *testing.T) {
	h := newTestHandler(t, &stubSubmitter{})
	rr := getPath(h, "/lessons/Intro/submission")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for mixed-case lesson, got %d", rr.Code)
	}
}
