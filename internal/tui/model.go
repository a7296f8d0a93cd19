package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finqa/internal/service"
)

// AskPort is the TUI-facing subset of the RAG service.
type AskPort interface {
	Ask(ctx context.Context, url, query string) service.Outcome
}

const (
	fieldURL = iota
	fieldQuestion
	fieldCount
)

const missingInput = "Please provide both an article URL and a question."

type answerMsg service.Outcome

// Model is the Bubble Tea model for the question form.
type Model struct {
	service     AskPort
	inputs      []textinput.Model
	focus       int
	spinner     spinner.Model
	viewport    viewport.Model
	outcome     *service.Outcome
	busy        bool
	showPreview bool
	status      string
	ready       bool
}

// New creates a new TUI model instance.
func New(svc AskPort) Model {
	url := textinput.New()
	url.Prompt = "URL      > "
	url.Placeholder = "https://www.moneycontrol.com/news/..."
	url.CharLimit = 0
	url.Focus()

	question := textinput.New()
	question.Prompt = "Question > "
	question.Placeholder = "Ask a question about the article"
	question.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		service:  svc,
		inputs:   []textinput.Model{url, question},
		spinner:  sp,
		viewport: viewport.New(0, 0),
		status:   "Enter a finance article URL and a question. Tab switches fields, Enter submits.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, fh := formBoxStyle.GetFrameSize()
		reserved := 1 + fieldCount + fh + 1 + 1 // header, inputs, form frame, status, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil

	case answerMsg:
		out := service.Outcome(msg)
		m.busy = false
		m.outcome = &out
		if out.Err != nil {
			m.status = "Request failed."
		} else {
			m.status = "Answer generated successfully!"
		}
		m.viewport.SetContent(m.renderResult())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			cmd := m.setFocus((m.focus + 1) % fieldCount)
			return m, cmd
		case tea.KeyShiftTab, tea.KeyUp:
			cmd := m.setFocus((m.focus - 1 + fieldCount) % fieldCount)
			return m, cmd
		case tea.KeyCtrlP:
			m.showPreview = !m.showPreview
			m.viewport.SetContent(m.renderResult())
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.focus == fieldURL && strings.TrimSpace(m.inputs[fieldQuestion].Value()) == "" {
				cmd := m.setFocus(fieldQuestion)
				return m, cmd
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	url := strings.TrimSpace(m.inputs[fieldURL].Value())
	question := strings.TrimSpace(m.inputs[fieldQuestion].Value())
	if url == "" || question == "" {
		m.status = missingInput
		return m, nil
	}

	m.busy = true
	m.outcome = nil
	m.status = "Fetching article and generating answer..."
	m.viewport.SetContent(m.renderResult())

	svc := m.service
	ask := func() tea.Msg {
		return answerMsg(svc.Ask(context.Background(), url, question))
	}
	return m, tea.Batch(m.spinner.Tick, ask)
}

// View renders the form, the result box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Finance Article Question & Answer")

	fields := make([]string, len(m.inputs))
	for i := range m.inputs {
		fields[i] = m.inputs[i].View()
	}
	form := formBoxStyle.Render(strings.Join(fields, "\n"))

	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	} else if m.outcome != nil && m.outcome.Err != nil {
		status = errorStyle.Render(m.status)
	}
	results := resultBoxStyle.Render(m.viewport.View())
	help := helpStyle.Render("tab: switch field • enter: submit • ctrl+p: article preview • pgup/pgdn: scroll • ctrl+c: quit")
	return header + "\n" + form + "\n" + results + "\n" + status + "\n" + help
}

func (m Model) renderResult() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	if m.busy {
		return "Working..."
	}
	if m.outcome == nil {
		return "No answer yet."
	}

	var b strings.Builder
	if m.outcome.Err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.outcome.Err.Error()))
	} else {
		b.WriteString(titleStyle.Render("Answer:"))
		b.WriteString("\n\n")
		b.WriteString(wrap.Render(m.outcome.Answer.Text))
	}
	if m.outcome.Preview != "" {
		b.WriteString("\n\n")
		if m.showPreview {
			b.WriteString(titleStyle.Render("Article preview"))
			b.WriteString("\n")
			b.WriteString(previewStyle.Width(width).Render(m.outcome.Preview))
		} else {
			b.WriteString(helpStyle.Render(fmt.Sprintf("ctrl+p shows the article preview (%d chars)", len([]rune(m.outcome.Preview)))))
		}
	}
	return b.String()
}

var (
	formBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	previewStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
