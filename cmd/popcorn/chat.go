package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kalambet/popcorn/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive movie discovery",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		m := newChatModel(cmd.Context(), client.ask, sessionID)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

func init() {
	chatCmd.Flags().String("session", "", "continue an existing session")
}

type askFunc func(ctx context.Context, sessionID, message string) (pipeline.Response, error)

// answerMsg carries a reply for request seq.
type answerMsg struct {
	seq  int
	resp pipeline.Response
	err  error
}

type chatModel struct {
	ctx       context.Context
	ask       askFunc
	input     textinput.Model
	spinner   spinner.Model
	sessionID string
	seq       int
	busy      bool
	lines     []string
}

func newChatModel(ctx context.Context, ask askFunc, sessionID string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "e.g. feel-good 90s comedies rated above 7"
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = 70
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stepStyle

	return chatModel{
		ctx:       ctx,
		ask:       ask,
		input:     ti,
		spinner:   s,
		sessionID: sessionID,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) askCmd(seq int, sessionID, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.ask(m.ctx, sessionID, text)
		return answerMsg{seq: seq, resp: resp, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
		if m.busy {
			return m, nil
		}

	case answerMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.busy = false
		m.input.Focus()
		switch {
		case msg.err != nil:
			m.lines = append(m.lines, colorize(errorStyle, "✗ "+msg.err.Error()))
		case msg.resp.Status == pipeline.StatusStale:
		default:
			m.sessionID = msg.resp.SessionID
			m.lines = append(m.lines, formatResponse(msg.resp))
		}
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.busy {
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

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch text {
	case "":
		return m, nil
	case "/quit", "/exit":
		return m, tea.Quit
	case "/new":
		m.sessionID = ""
		m.lines = append(m.lines, colorize(dimStyle, "started a new conversation"))
		return m, nil
	}

	m.seq++
	m.busy = true
	m.input.Blur()
	m.lines = append(m.lines, colorize(boldStyle, "> "+text))
	return m, tea.Batch(m.spinner.Tick, m.askCmd(m.seq, m.sessionID, text))
}

func (m chatModel) View() string {
	var sb strings.Builder
	sb.WriteString(colorize(titleStyle, "popcorn") + colorize(dimStyle, "  /new starts over, esc quits") + "\n\n")
	for _, l := range m.lines {
		sb.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	if m.busy {
		fmt.Fprintf(&sb, "%s searching...\n", m.spinner.View())
	} else {
		sb.WriteString(m.input.View() + "\n")
	}
	return sb.String()
}
