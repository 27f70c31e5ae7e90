// Package tui renders the conversation timeline in the terminal. It is one
// consumer of the segment log: every inbound message is folded through the
// timeline reducer and the resulting log is redrawn. The log lives only for
// the lifetime of the program; history is the backend's problem.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/M3kH/gigi-sub006/internal/adapter/realtime"
	"github.com/M3kH/gigi-sub006/internal/domain"
	"github.com/M3kH/gigi-sub006/internal/usecase/chat"
	"github.com/M3kH/gigi-sub006/internal/usecase/timeline"
)

// Model is the root Bubble Tea model.
type Model struct {
	dispatch *chat.Dispatcher
	logger   *slog.Logger

	segments       []domain.Segment
	connState      realtime.State
	conversationID string
	title          string
	generating     bool
	lastCost       float64

	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width    int
	height   int
	quitting bool
}

// NewModel creates the TUI model.
func NewModel(dispatch *chat.Dispatcher, logger *slog.Logger) Model {
	input := textinput.New()
	input.Placeholder = "Message the agent..."
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	// Markdown rendering is best-effort; a nil renderer falls back to raw text.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Warn("glamour renderer unavailable", "error", err)
	}

	return Model{
		dispatch:  dispatch,
		logger:    logger,
		connState: realtime.StateIdle,
		input:     input,
		spinner:   s,
		renderer:  renderer,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ServerMsg:
		return m.handleServer(msg.Message)

	case ConnStateMsg:
		m.connState = msg.State
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+g":
		m.dispatch.StopGeneration(m.conversationID)
		return m, nil

	case "enter":
		text := m.input.Value()
		if m.dispatch.SendMessage(text, m.conversationID, nil) {
			m.input.Reset()
		}
		return m, nil
	}

	// Digits answer the oldest pending question.
	if q, ok := m.pendingQuestion(); ok && len(msg.String()) == 1 {
		if idx := int(msg.String()[0] - '1'); idx >= 0 && idx < len(q.Options) {
			answer := q.Options[idx]
			if m.dispatch.AnswerQuestion(q.QuestionID, answer) {
				m.segments = timeline.ApplyAnswer(m.segments, q.QuestionID, answer, time.Now())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleServer(msg domain.ServerMessage) (tea.Model, tea.Cmd) {
	m.segments = timeline.Apply(m.segments, msg, time.Now())

	switch ev := msg.(type) {
	case domain.GenerationStarted:
		m.generating = true
		if m.conversationID == "" {
			m.conversationID = ev.ConversationID
		}
	case domain.GenerationFinished:
		m.generating = false
		m.lastCost = ev.Cost
	case domain.GenerationStopped:
		m.generating = false
	case domain.TitleChanged:
		if ev.ConversationID == m.conversationID || m.conversationID == "" {
			m.title = ev.Title
		}
	}
	return m, nil
}

// pendingQuestion returns the oldest unanswered question segment.
func (m Model) pendingQuestion() (domain.QuestionSegment, bool) {
	for _, seg := range m.segments {
		if q, ok := seg.(domain.QuestionSegment); ok && !q.Answered() {
			return q, true
		}
	}
	return domain.QuestionSegment{}, false
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := m.title
	if title == "" {
		title = "gigi"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		styleHeader.Render(title),
		"  ",
		stateBadge(m.connState.String()),
	)
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, seg := range m.segments {
		b.WriteString(m.renderSegment(seg))
		b.WriteString("\n")
	}

	if m.generating {
		b.WriteString(m.spinner.View())
		b.WriteString(styleHint.Render(" generating... (ctrl+g to stop)"))
		b.WriteString("\n")
	} else if m.lastCost > 0 {
		b.WriteString(styleHint.Render(fmt.Sprintf("last turn $%.4f", m.lastCost)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) renderSegment(seg domain.Segment) string {
	switch s := seg.(type) {
	case domain.TextSegment:
		if m.renderer != nil {
			if out, err := m.renderer.Render(s.Content); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
		return s.Content

	case domain.ToolSegment:
		if s.Status == domain.ToolDone {
			line := styleToolOK.Render("✔ " + s.ToolName)
			if s.Result != "" {
				line += "\n" + styleHint.Render(indent(truncateLines(s.Result, 8)))
			}
			return line
		}
		return styleTool.Render("⚙ " + s.ToolName + " (running)")

	case domain.QuestionSegment:
		var b strings.Builder
		b.WriteString(styleAsk.Render("? " + s.Question))
		for i, opt := range s.Options {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, opt))
		}
		if s.Answered() {
			b.WriteString("\n")
			b.WriteString(styleHint.Render("answered: " + s.Answer))
		} else if len(s.Options) > 0 {
			b.WriteString("\n")
			b.WriteString(styleHint.Render("press 1-" + fmt.Sprint(len(s.Options)) + " to answer"))
		}
		return b.String()

	case domain.NoticeSegment:
		return styleNotice.Render("· " + s.Text)

	default:
		return ""
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func truncateLines(s string, max int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:max], "\n") + "\n… (" + fmt.Sprint(len(lines)-max) + " more lines)"
}
