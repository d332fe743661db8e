// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SourceList displays the chunks cited by an answer in rank order.
// Entry i is labelled [i+1], matching the markers in the prompt.
type SourceList struct {
	sources  []domain.SourceChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the source list.
func (r *SourceList) View() string {
	if len(r.sources) == 0 {
		return r.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(r.sources)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(r.sources))), "")

	// Each source takes two lines
	visibleCount := (r.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(r.sources))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderSource(i, &r.sources[i]))
	}

	return strings.Join(lines, "\n")
}

func (r *SourceList) renderSource(index int, src *domain.SourceChunk) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	name := src.Filename
	if name == "" {
		name = src.DocumentID
	}
	label := truncate(fmt.Sprintf("%s #%d", name, src.ChunkID), max(r.width-20, 10))
	marker := fmt.Sprintf("[%d]", index+1)
	score := fmt.Sprintf("%.2f", src.Score)

	var header string
	if index == r.selected {
		header = r.styles.Selected.Render(fmt.Sprintf("%s%s %s  %s", indicator, marker, label, score))
	} else {
		header = indicator + r.styles.Citation.Render(marker) + " " +
			r.styles.Normal.Render(label) + "  " + r.styles.Muted.Render(score)
	}

	preview := strings.Join(strings.Fields(src.Text), " ")
	preview = truncate(preview, max(r.width-6, 20))

	return header + "\n" + r.styles.Muted.Render("    "+preview)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// SetSources replaces the listed sources and resets the selection.
func (r *SourceList) SetSources(sources []domain.SourceChunk) {
	r.sources = sources
	r.selected = 0
}

// Sources returns the listed sources.
func (r *SourceList) Sources() []domain.SourceChunk {
	return r.sources
}

// Selected returns the index of the selected source.
func (r *SourceList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *SourceList) SetSelected(index int) {
	if index >= 0 && index < len(r.sources) {
		r.selected = index
	}
}

// SelectedSource returns the selected source, or nil when the list is empty.
func (r *SourceList) SelectedSource() *domain.SourceChunk {
	if r.selected < 0 || r.selected >= len(r.sources) {
		return nil
	}
	return &r.sources[r.selected]
}

// MoveUp moves selection up.
func (r *SourceList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *SourceList) MoveDown() {
	if r.selected < len(r.sources)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *SourceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of sources.
func (r *SourceList) Count() int {
	return len(r.sources)
}

// IsEmpty returns whether the list is empty.
func (r *SourceList) IsEmpty() bool {
	return len(r.sources) == 0
}
