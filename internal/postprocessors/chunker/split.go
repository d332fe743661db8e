package chunker

import (
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Window is one chunk of text with its character offsets.
// Offsets count Unicode code points, not bytes.
type Window struct {
	Text  string
	Start int
	End   int
}

// Split cuts text into windows of maxChars characters where consecutive
// windows share overlap characters. The window that reaches the end of the
// text is the last one.
//
// maxChars <= 0 disables chunking and returns the whole text as one window.
// Empty text returns no windows. Otherwise overlap must satisfy
// 0 <= overlap < maxChars.
func Split(text string, maxChars, overlap int) ([]Window, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)

	if maxChars <= 0 {
		return []Window{{Text: text, Start: 0, End: n}}, nil
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidInput, overlap, maxChars)
	}

	stride := maxChars - overlap
	windows := make([]Window, 0, n/stride+1)

	for start := 0; start < n; start += stride {
		end := min(start+maxChars, n)
		windows = append(windows, Window{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
	}

	return windows, nil
}

// Texts returns the text of each window.
func Texts(windows []Window) []string {
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.Text
	}
	return out
}
