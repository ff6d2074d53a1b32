// Package tui renders the solution submission form in a terminal.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Its-donkey/solution-submit/internal/i18n"
	"github.com/Its-donkey/solution-submit/internal/ui/forms"
	"github.com/Its-donkey/solution-submit/internal/ui/model"
)

type focusTarget int

const (
	focusRepoURL focusTarget = iota
	focusLivePreviewURL
	focusToggle
	focusSubmit
)

// submitResultMsg carries the outcome of a submission started by the model.
type submitResultMsg struct {
	err error
}

// Model is the bubbletea model wrapping a form controller.
type Model struct {
	ctx         context.Context
	form        *forms.Controller
	repoURL     textinput.Model
	livePreview textinput.Model
	focus       focusTarget
	closed      bool
}

// New builds a terminal model for form. Submissions run with ctx so its
// values reach the submit handler.
func New(ctx context.Context, form *forms.Controller) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	repo := textinput.New()
	repo.Placeholder = i18n.T("form.repo_url.placeholder")
	repo.Width = 48
	repo.Prompt = "> "
	repo.Focus()

	live := textinput.New()
	live.Placeholder = i18n.T("form.live_preview_url.placeholder")
	live.Width = 48
	live.Prompt = "> "

	view := form.View()
	repo.SetValue(view.RepoURL)
	live.SetValue(view.LivePreviewURL)

	return &Model{
		ctx:         ctx,
		form:        form,
		repoURL:     repo,
		livePreview: live,
		focus:       focusRepoURL,
	}
}

// Closed reports whether the user closed the form.
func (m *Model) Closed() bool {
	return m.closed
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submitResultMsg:
		return m, m.handleResult(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.form.View().Succeeded {
			switch msg.String() {
			case "enter", "esc", " ":
				return m, m.close()
			}
			return m, nil
		}
		switch msg.String() {
		case "esc":
			return m, m.close()
		case "tab", "down":
			m.moveFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.moveFocus(-1)
			return m, nil
		case "enter":
			return m, m.activate()
		case " ":
			if m.focus == focusToggle {
				m.form.ToggleVisibility()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusRepoURL:
		m.repoURL, cmd = m.repoURL.Update(msg)
	case focusLivePreviewURL:
		m.livePreview, cmd = m.livePreview.Update(msg)
	}
	return m, cmd
}

func (m *Model) activate() tea.Cmd {
	switch m.focus {
	case focusToggle:
		m.form.ToggleVisibility()
		return nil
	case focusSubmit:
		return m.submit()
	default:
		m.moveFocus(1)
		return nil
	}
}

func (m *Model) submit() tea.Cmd {
	if m.form.View().SubmitDisabled {
		return nil
	}
	raw := m.rawFields()
	m.form.SetFields(raw)
	ctx, form := m.ctx, m.form
	return func() tea.Msg {
		_, err := form.Submit(ctx, raw)
		return submitResultMsg{err: err}
	}
}

func (m *Model) handleResult(msg submitResultMsg) tea.Cmd {
	var validationErr *forms.ValidationError
	if errors.As(msg.err, &validationErr) {
		switch {
		case validationErr.Errors.Has(model.FieldRepoURL):
			m.setFocus(focusRepoURL)
		case validationErr.Errors.Has(model.FieldLivePreviewURL):
			m.setFocus(focusLivePreviewURL)
		}
	}
	return nil
}

func (m *Model) close() tea.Cmd {
	m.form.Close()
	m.closed = true
	return tea.Quit
}

func (m *Model) rawFields() model.RawFields {
	return model.RawFields{
		RepoURL:        m.repoURL.Value(),
		LivePreviewURL: m.livePreview.Value(),
	}
}

func (m *Model) targets() []focusTarget {
	if m.form.Lesson().HasLivePreview {
		return []focusTarget{focusRepoURL, focusLivePreviewURL, focusToggle, focusSubmit}
	}
	return []focusTarget{focusRepoURL, focusToggle, focusSubmit}
}

func (m *Model) moveFocus(delta int) {
	targets := m.targets()
	idx := 0
	for i, t := range targets {
		if t == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(targets)) % len(targets)
	m.setFocus(targets[idx])
}

func (m *Model) setFocus(target focusTarget) {
	m.focus = target
	m.repoURL.Blur()
	m.livePreview.Blur()
	switch target {
	case focusRepoURL:
		m.repoURL.Focus()
	case focusLivePreviewURL:
		m.livePreview.Focus()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	view := m.form.View()
	var b strings.Builder
	if view.Succeeded {
		b.WriteString(titleStyle.Render(i18n.T("form.success")))
		b.WriteString("\n\n")
		b.WriteString(focusedStyle.Render("[ " + i18n.T("form.close") + " ]"))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render(i18n.T("tui.help_success")))
		return boxStyle.Render(b.String())
	}

	b.WriteString(titleStyle.Render(i18n.T("form.title")))
	if view.Lesson.Title != "" {
		b.WriteString(helpStyle.Render("  " + view.Lesson.Title))
	}
	b.WriteString("\n\n")
	if view.FormError != "" {
		b.WriteString(errorStyle.Render(view.FormError))
		b.WriteString("\n\n")
	}

	m.writeField(&b, i18n.T("form.repo_url.label"), m.repoURL.View(), view.Errors.Get(model.FieldRepoURL))
	if view.ShowLivePreview {
		m.writeField(&b, i18n.T("form.live_preview_url.label"), m.livePreview.View(), view.Errors.Get(model.FieldLivePreviewURL))
	}

	box := "[ ]"
	state := i18n.T("form.toggle.off")
	if view.IsPublic {
		box = "[x]"
		state = i18n.T("form.toggle.on")
	}
	toggle := box + " " + i18n.T("form.toggle.label") + " (" + state + ")"
	if m.focus == focusToggle {
		toggle = focusedStyle.Render(toggle)
	} else {
		toggle = blurredStyle.Render(toggle)
	}
	b.WriteString(toggle)
	b.WriteString("\n\n")

	button := "[ " + i18n.T("form.submit") + " ]"
	switch {
	case view.SubmitDisabled:
		button = disabledStyle.Render("[ " + i18n.T("form.submitting") + " ]")
	case m.focus == focusSubmit:
		button = focusedStyle.Render(button)
	default:
		button = blurredStyle.Render(button)
	}
	b.WriteString(button)
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(i18n.T("tui.help")))
	return boxStyle.Render(b.String())
}

func (m *Model) writeField(b *strings.Builder, label, input, errText string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString("\n")
	b.WriteString(input)
	b.WriteString("\n")
	if errText != "" {
		b.WriteString(errorStyle.Render(errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
