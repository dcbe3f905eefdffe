// Package tui is the terminal chat window: transcript, input line and the
// deployment guide panel, all driven by a conversation.Controller.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gemini-chat/internal/conversation"
	"gemini-chat/internal/domain"
	"gemini-chat/internal/guide"
)

const (
	appTitle      = "Gemini Bot"
	placeholder   = "Send a message to Gemini..."
	guideWidth    = 40
	minSideBySide = 80
	tickInterval  = 150 * time.Millisecond
)

// ChangedMsg tells the program the transcript changed outside Update.
type ChangedMsg struct{}

type settledMsg struct{}

type tickMsg struct{}

// Model is the bubbletea model around a single Controller.
type Model struct {
	ctx    context.Context
	ctrl   *conversation.Controller
	width  int
	height int
	frame  int
}

func New(ctx context.Context, ctrl *conversation.Controller) Model {
	return Model{ctx: ctx, ctrl: ctrl, width: 80, height: 24}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		m.frame++
		return m, tick()

	case ChangedMsg, settledMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+g":
		m.ctrl.ToggleGuide()
		return m, nil
	case "enter":
		if !m.ctrl.CanSubmit() {
			return m, nil
		}
		return m, tea.Batch(m.submit(), tick())
	case "backspace":
		in := []rune(m.ctrl.Input())
		if len(in) > 0 {
			m.ctrl.SetInput(string(in[:len(in)-1]))
		}
		return m, nil
	case "ctrl+u":
		m.ctrl.SetInput("")
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.ctrl.SetInput(m.ctrl.Input() + string(msg.Runes))
	case tea.KeySpace:
		m.ctrl.SetInput(m.ctrl.Input() + " ")
	}
	return m, nil
}

// submit runs the exchange off the event loop; the controller drops it if
// another one is already outstanding.
func (m Model) submit() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		ctrl.Submit(ctx)
		return settledMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

var (
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	hintStyle        = lipgloss.NewStyle().Faint(true)
	metaStyle        = lipgloss.NewStyle().Faint(true)
	placeholderStyle = lipgloss.NewStyle().Faint(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)
	userBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)
	botBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	guidePanel = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m Model) View() string {
	header := m.header()
	input := m.input()
	footer := hintStyle.Render("enter send · ctrl+g guide · ctrl+u clear · esc quit")

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(input) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	switch {
	case !m.ctrl.GuideVisible():
		body = m.transcript(m.width, bodyHeight)
	case m.width >= minSideBySide:
		chatWidth := m.width - guideWidth - 3
		panel := guidePanel.Height(bodyHeight).Render(lastLines(guide.Render(guideWidth), bodyHeight))
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.transcript(chatWidth, bodyHeight), panel)
	default:
		body = lastLines(guide.Render(m.width), bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, footer)
}

func (m Model) header() string {
	status := statusStyle.Render("ready")
	if m.ctrl.Busy() {
		status = statusStyle.Render("thinking")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, headerStyle.Render(appTitle), " ", status)
}

func (m Model) input() string {
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	text := m.ctrl.Input()
	line := "> " + text + "█"
	if text == "" {
		line = "> " + placeholderStyle.Render(placeholder)
	}
	return inputStyle.Width(w).Render(line)
}

// transcript renders the messages bottom-anchored so the newest entry is
// always visible.
func (m Model) transcript(width, height int) string {
	if width < 20 {
		width = 20
	}
	bubbleWidth := width * 3 / 4

	var blocks []string
	for _, msg := range m.ctrl.Messages() {
		blocks = append(blocks, renderMessage(msg, width, bubbleWidth))
	}
	if m.ctrl.Busy() {
		blocks = append(blocks, botBubble.Render(dots(m.frame)))
	}
	content := strings.Join(blocks, "\n\n")
	return lipgloss.NewStyle().Width(width).Height(height).Render(lastLines(content, height))
}

func renderMessage(msg domain.Message, width, bubbleWidth int) string {
	style, label, align := botBubble, "gemini", lipgloss.Left
	if msg.Role == domain.RoleUser {
		style, label, align = userBubble, "you", lipgloss.Right
	}
	bubble := style.Width(min(bubbleWidth, lipgloss.Width(msg.Content)+2)).Render(msg.Content)
	meta := metaStyle.Render(label + " · " + msg.Clock())
	return lipgloss.PlaceHorizontal(width, align, lipgloss.JoinVertical(align, bubble, meta))
}

func dots(frame int) string {
	frames := []string{"●  ", "●● ", "●●●", " ●●", "  ●", "   "}
	return frames[frame%len(frames)]
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
