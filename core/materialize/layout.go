package materialize

import "strings"

// Layout turns text into a node size.
type Layout func(text string) (width, height int)

const (
	wordThreshold = 500

	narrowWidth        = 400
	narrowWordsPerLine = 10
	wideWidth          = 750
	wideWordsPerLine   = 20

	lineHeight = 24
	padding    = 40
	minHeight  = 60
)

// WordLayout estimates lines from the word count. Long answers switch to a
// wider node that fits more words per line.
func WordLayout(text string) (width, height int) {
	words := len(strings.Fields(text))

	width, perLine := narrowWidth, narrowWordsPerLine
	if words > wordThreshold {
		width, perLine = wideWidth, wideWordsPerLine
	}

	lines := (words + perLine - 1) / perLine
	// explicit paragraphs take a line of their own
	lines += strings.Count(text, "\n\n")

	return width, max(lines*lineHeight+padding, minHeight)
}
