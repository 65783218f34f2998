package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/bpa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/bpa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/bpa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/bpa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/bpa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/bpa/internal/core/domain"
)

// entry is one rendered turn in the transcript.
type entry struct {
	sender    domain.Sender
	text      string
	citations []domain.Citation
	failed    bool
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	session Session

	ctx context.Context

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model

	// transcript holds the turns shown in this session.
	transcript []entry

	// thinking is true while a question is being answered.
	thinking bool

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application.
func NewApp(ports *Ports, session Session) (*App, error) {
	if ports == nil {
		return nil, ErrMissingAnswerService
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if session.Role == "" {
		session.Role = domain.RoleStudent
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.SetRole(session.Role)

	return &App{
		ports:     ports,
		session:   session,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		input:     input.NewQuestionInput(s),
		statusbar: bar,
		viewport:  viewport.New(80, 20),
	}, nil
}

// WithContext sets the context used for answer requests.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("bpa - Business Process Agent"),
		a.input.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.submit(msg.Question)

	case messages.AnswerReceived:
		a.handleAnswer(msg.Answer)
		return a, nil

	case messages.ConversationReset:
		a.reset()
		return a, nil

	case messages.ErrorOccurred:
		a.thinking = false
		a.err = msg.Err
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(msg.Err.Error())
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Send):
		question := a.input.Value()
		a.input.Reset()
		return a, a.submit(question)

	case key.Matches(msg, a.keymap.NewConversation):
		a.reset()
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp), key.Matches(msg, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit records the question and starts answering it.
// Questions typed while an answer is pending are dropped.
func (a *App) submit(question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if question == "" || a.thinking {
		return nil
	}

	a.thinking = true
	a.err = nil
	a.transcript = append(a.transcript, entry{sender: domain.SenderUser, text: question})
	a.statusbar.SetState(status.StateThinking)
	a.refresh()

	return a.ask(question)
}

// ask runs the answer pipeline off the update loop.
func (a *App) ask(question string) tea.Cmd {
	req := domain.AnswerRequest{
		Query:          question,
		Role:           a.session.Role,
		ConversationID: a.session.ConversationID,
		Owner:          a.session.Owner,
	}
	ctx := a.ctx
	answers := a.ports.Answer

	return func() tea.Msg {
		return messages.AnswerReceived{Answer: answers.AnswerQuery(ctx, req)}
	}
}

func (a *App) handleAnswer(answer *domain.Answer) {
	a.thinking = false
	if answer == nil {
		return
	}

	a.transcript = append(a.transcript, entry{
		sender:    domain.SenderAssistant,
		text:      answer.Answer,
		citations: answer.Citations,
		failed:    answer.Meta.Error,
	})

	if answer.Meta.Error {
		a.err = errors.New(answer.Meta.Message)
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(answer.Meta.Message)
	} else {
		a.session.ConversationID = answer.ConversationID
		a.statusbar.SetState(status.StateReady)
		a.statusbar.SetSourceCount(answer.Meta.SourceCount)
	}
	a.refresh()
}

// reset forgets the transcript; the next question starts a new conversation.
func (a *App) reset() {
	a.transcript = nil
	a.session.ConversationID = ""
	a.thinking = false
	a.err = nil
	a.statusbar.Clear()
	a.refresh()
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("Ask anything about university business processes.")
	}

	wrap := lipgloss.NewStyle().Width(max(a.viewport.Width-2, 20))
	blocks := make([]string, 0, len(a.transcript)+1)

	for _, e := range a.transcript {
		var b strings.Builder
		switch e.sender {
		case domain.SenderUser:
			b.WriteString(a.styles.UserLabel.Render("You"))
		case domain.SenderAssistant:
			b.WriteString(a.styles.AssistantLabel.Render("BPA"))
		}
		b.WriteString("\n")

		text := a.styles.Answer.Render(wrap.Render(e.text))
		if e.failed {
			text = a.styles.Error.Render(wrap.Render(e.text))
		}
		b.WriteString(text)

		for i, c := range e.citations {
			b.WriteString("\n")
			b.WriteString(a.styles.Citation.Render(fmt.Sprintf("[%d] %s", i+1, formatCitation(c))))
		}
		blocks = append(blocks, b.String())
	}

	if a.thinking {
		blocks = append(blocks, a.styles.Muted.Render("..."))
	}
	return strings.Join(blocks, "\n\n")
}

func formatCitation(c domain.Citation) string {
	s := c.Title
	if c.Page > 0 {
		s += fmt.Sprintf(", page %d", c.Page)
	}
	if c.URL != "" && c.URL != c.Title {
		s += " (" + c.URL + ")"
	}
	return s
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("Business Process Agent")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.viewport.View(),
		a.input.View(),
		a.statusbar.View(),
	)
}

// Run starts the chat application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// ConversationID returns the conversation the next question continues.
func (a *App) ConversationID() string {
	return a.session.ConversationID
}

// Thinking reports whether an answer is pending.
func (a *App) Thinking() bool {
	return a.thinking
}

// TranscriptLen returns the number of turns shown.
func (a *App) TranscriptLen() int {
	return len(a.transcript)
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions lays out the components for a terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// header, input (3 rows with border) and status bar
	a.viewport.Width = width
	a.viewport.Height = max(height-5, 3)
	a.input.SetWidth(width)
	a.statusbar.SetWidth(width)
	a.refresh()
}
