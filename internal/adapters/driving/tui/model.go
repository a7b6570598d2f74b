// Package tui implements the interactive chat interface using Bubble Tea.
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

	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
)

var (
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// answerMsg carries the result of one pipeline query back into Update.
type answerMsg struct {
	question string
	answer   string
	sources  []string
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	pipeline driving.Pipeline
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	transcript []string
	status     string
	waiting    bool
	ready      bool
}

// NewModel creates a chat model bound to a served pipeline.
func NewModel(pipeline driving.Pipeline) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		pipeline: pipeline,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   statusLine(pipeline),
	}
}

func statusLine(pipeline driving.Pipeline) string {
	st := pipeline.Status()
	if !st.Ready {
		return "Index is not ready. Run 'askdoc index' first."
	}
	return fmt.Sprintf("%d documents, %d chunks indexed. Esc to quit.", st.Documents, st.Chunks)
}

// Init starts the text input blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - ah
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && !m.waiting {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			return m, tea.Batch(m.spinner.Tick, askCmd(m.pipeline, question))
		}

	case answerMsg:
		m.waiting = false
		m.status = statusLine(m.pipeline)
		m.appendExchange(msg)
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("askdoc chat")
	transcript := answerBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) appendExchange(msg answerMsg) {
	var b strings.Builder
	b.WriteString(questionStyle.Render("You: " + msg.question))
	b.WriteString("\n")
	if msg.err != nil {
		b.WriteString(errorStyle.Render("Error: " + msg.err.Error()))
	} else {
		b.WriteString(msg.answer)
		if len(msg.sources) > 0 {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("Sources: " + strings.Join(msg.sources, "; ")))
		}
	}
	m.transcript = append(m.transcript, b.String())
}

func (m *Model) refreshViewport() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("Ask anything about your documents.")
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
}

func askCmd(pipeline driving.Pipeline, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := pipeline.Answer(context.Background(), question)
		if err != nil {
			return answerMsg{question: question, err: err}
		}
		seen := make(map[string]struct{}, len(answer.Context))
		var sources []string
		for _, rc := range answer.Context {
			label := rc.Chunk.SourceLabel()
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			sources = append(sources, label)
		}
		return answerMsg{question: question, answer: answer.Text, sources: sources}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
