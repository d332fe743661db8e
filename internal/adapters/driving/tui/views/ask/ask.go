// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Options scope the questions asked from this view.
type Options struct {
	// UserID restricts retrieval to one user's documents.
	UserID string

	// DocumentID restricts retrieval to one document.
	DocumentID string

	// TopK is the number of excerpts to retrieve. Zero uses the service default.
	TopK int
}

// View is the ask view: a question input, the generated answer and the
// sources it cites.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *list.SourceList
	statusbar *status.Bar

	ragService driving.RagService
	ctx        context.Context
	opts       Options

	question string
	answer   string
	asking   bool

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a question, false = browsing sources
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, ragService driving.RagService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		sources:    list.NewSourceList(s),
		statusbar:  status.NewBar(s, km),
		ragService: ragService,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context used for queries.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithOptions sets the retrieval scope.
func (v *View) WithOptions(opts Options) *View {
	v.opts = opts
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.asking = false
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	// A question is in flight; ignore input until it settles.
	if v.asking {
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			question := v.input.Question()
			if question == "" {
				return v, nil
			}
			return v, v.submit(question)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "enter":
		src := v.sources.SelectedSource()
		if src == nil {
			return v, nil
		}
		selected := *src
		return v, func() tea.Msg {
			return messages.SourceSelected{Source: selected}
		}
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	v.sources, _ = v.sources.Update(msg)
	return v, nil
}

func (v *View) submit(question string) tea.Cmd {
	v.question = question
	v.asking = true
	v.err = nil
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateThinking)
	v.input.Blur()
	v.focusInput = false
	return v.performQuery(question)
}

// performQuery asks the RAG service and reports the answer.
func (v *View) performQuery(question string) tea.Cmd {
	ctx := v.ctx
	opts := v.opts
	rag := v.ragService
	return func() tea.Msg {
		if rag == nil {
			return messages.ErrorOccurred{Err: ErrNoRagService}
		}

		record, err := rag.Query(ctx, domain.QueryRequest{
			Text:       question,
			TopK:       opts.TopK,
			UserID:     opts.UserID,
			DocumentID: opts.DocumentID,
		})
		return messages.AnswerCompleted{Question: question, Record: record, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.asking = false
	if msg.Err != nil {
		v.err = msg.Err
		v.answer = ""
		v.sources.SetSources(nil)
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		// Let the user fix the question
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.answer = ""
	var sources []domain.SourceChunk
	if msg.Record != nil {
		v.answer = msg.Record.Answer
		sources = msg.Record.Sources
	}
	v.sources.SetSources(sources)
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetSourceCount(len(sources))
	v.focusInput = false
	v.input.Blur()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("docrag"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.asking {
		sections = append(sections, v.styles.Muted.Render("Thinking about: "+v.question), "")
	} else if v.answer != "" {
		answerWidth := max(v.width-4, 20)
		sections = append(sections,
			v.styles.Subtitle.Render("Answer"),
			v.styles.Answer.Width(answerWidth).Render(v.answer),
			"",
			v.sources.View(),
		)
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// The answer shares the screen with the sources; give sources a third.
	v.sources.SetDimensions(width, max(height/3, 4))
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the text in the input box.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the text in the input box.
func (v *View) SetQuestion(question string) {
	v.input.SetValue(question)
}

// Answer returns the last generated answer.
func (v *View) Answer() string {
	return v.answer
}

// Sources returns the sources cited by the last answer.
func (v *View) Sources() []domain.SourceChunk {
	return v.sources.Sources()
}

// SelectedSource returns the highlighted source, or nil.
func (v *View) SelectedSource() *domain.SourceChunk {
	return v.sources.SelectedSource()
}

// Asking reports whether a question is in flight.
func (v *View) Asking() bool {
	return v.asking
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty question.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.question = ""
	v.answer = ""
	v.asking = false
	v.sources.SetSources(nil)
	v.err = nil
	v.statusbar.Clear()
}
