package console

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ChatMessage represents a message in the chat history
type ChatMessage struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Styles holds the lipgloss styles for the console
type Styles struct {
	Header  lipgloss.Style
	UserMsg lipgloss.Style
	BotMsg  lipgloss.Style
	Status  lipgloss.Style
}

// DefaultStyles returns the default console styling
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		UserMsg: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		BotMsg:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Status:  lipgloss.NewStyle().Faint(true),
	}
}

// KeyMap defines the console key bindings
type KeyMap struct {
	Send  key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// Model is the console chat state
type Model struct {
	width  int
	height int
	ready  bool

	messages []ChatMessage
	viewport viewport.Model
	textarea textarea.Model

	styles Styles
	keys   KeyMap

	// Outbound user prompts to the adapter
	promptChan chan<- string
}

// NewModel creates a new console model
func NewModel(promptChan chan<- string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask Gilbert..."
	ta.Focus()
	ta.CharLimit = 4096
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent("")

	return Model{
		textarea:   ta,
		viewport:   vp,
		styles:     DefaultStyles(),
		keys:       DefaultKeyMap(),
		messages:   make([]ChatMessage, 0),
		promptChan: promptChan,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.updateDimensions()

	case ChatResponseMsg:
		m.messages = append(m.messages, ChatMessage{
			Role:      "assistant",
			Content:   msg.Content,
			Timestamp: time.Now(),
		})
		m.viewport.SetContent(m.renderChat())
		m.viewport.GotoBottom()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Clear):
		m.messages = make([]ChatMessage, 0)
		m.viewport.SetContent("")
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m.handleSend()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleSend processes sending a message
func (m Model) handleSend() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" {
		return m, nil
	}

	m.messages = append(m.messages, ChatMessage{
		Role:      "user",
		Content:   content,
		Timestamp: time.Now(),
	})

	m.textarea.Reset()
	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()

	if m.promptChan != nil {
		return m, func() tea.Msg {
			m.promptChan <- content
			return nil
		}
	}

	return m, nil
}

// updateDimensions recalculates component sizes
func (m Model) updateDimensions() Model {
	headerHeight := 2
	statusHeight := 1
	inputHeight := 3
	padding := 2

	chatHeight := m.height - headerHeight - statusHeight - inputHeight - padding

	m.viewport.Width = m.width - 4
	m.viewport.Height = chatHeight
	m.textarea.SetWidth(m.width - 4)

	return m
}

// renderChat renders the chat messages for the viewport
func (m Model) renderChat() string {
	var sb strings.Builder

	for _, msg := range m.messages {
		switch msg.Role {
		case "user":
			sb.WriteString(m.styles.UserMsg.Render("You: "))
		case "assistant":
			sb.WriteString(m.styles.BotMsg.Render("Gilbert: "))
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// View implements tea.Model
func (m Model) View() string {
	if !m.ready {
		return "Starting Gilbert..."
	}

	header := m.styles.Header.Render("Gilbert AI")
	status := m.styles.Status.Render("enter: send | ctrl+l: clear | ctrl+c: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.textarea.View(),
		status,
	)
}

// ChatResponseMsg carries a generated reply into the UI
type ChatResponseMsg struct {
	Content string
}
