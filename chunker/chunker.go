// Package chunker splits documents into overlapping character windows for retrieval.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"docsum/types"
)

var (
	spaceRun   = regexp.MustCompile(`[\t\f\v\p{Zs}\x{85}\x{2028}\x{2029}]+`)
	lineSpace  = regexp.MustCompile(` ?\n ?`)
	blankLines = regexp.MustCompile(`\n\n+`)
)

// Chunker cuts text into windows of at most size runes; consecutive windows of the
// same document share exactly overlap runes.
type Chunker struct {
	size    int
	overlap int
}

// MinSize is the smallest accepted chunk size. Normalized text never holds more than
// two whitespace runes in a row, so any window this long carries text.
const MinSize = 3

func New(size, overlap int) (*Chunker, error) {
	if size < MinSize {
		return nil, fmt.Errorf("chunk size must be at least %d, got %d", MinSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every document in order. Chunks never span two documents.
func (c *Chunker) Split(docs []types.Document) []types.Chunk {
	var chunks []types.Chunk
	for i, doc := range docs {
		text := []rune(Normalize(doc.Text))
		for _, w := range c.windows(text) {
			chunks = append(chunks, types.Chunk{
				Text:     string(text[w[0]:w[1]]),
				Offset:   w[0],
				DocIndex: i,
				Seq:      len(chunks),
			})
		}
	}
	return chunks
}

// windows returns [start, end) rune ranges covering text.
func (c *Chunker) windows(text []rune) [][2]int {
	var out [][2]int
	start := 0
	for start < len(text) {
		if len(text)-start <= c.size {
			out = append(out, [2]int{start, len(text)})
			break
		}
		end := c.breakPoint(text, start)
		out = append(out, [2]int{start, end})
		start = end - c.overlap
	}
	return out
}

// breakPoint picks the window end in (start+overlap, start+size]. A paragraph break in
// the second half of the window is preferred, then a sentence end there, then any
// whitespace; otherwise the cut is hard. Ends that would leave a whitespace-only window
// are skipped.
func (c *Chunker) breakPoint(text []rune, start int) int {
	lo := start + c.overlap + 1
	hi := start + c.size
	half := max(lo, start+c.size/2)

	levels := []struct {
		from    int
		isBreak func([]rune, int) bool
	}{
		{half, paragraphEnd},
		{half, sentenceEnd},
		{lo, spaceEnd},
	}
	for _, l := range levels {
		for end := hi; end >= l.from; end-- {
			if l.isBreak(text, end) && hasText(text[start:end]) {
				return end
			}
		}
	}
	return hi
}

func hasText(window []rune) bool {
	for _, r := range window {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// paragraphEnd reports whether text[:end] ends with a blank line.
func paragraphEnd(text []rune, end int) bool {
	return end >= 2 && text[end-1] == '\n' && text[end-2] == '\n'
}

// sentenceEnd reports whether text[:end] ends with terminal punctuation followed by whitespace.
func sentenceEnd(text []rune, end int) bool {
	if end < 2 || !unicode.IsSpace(text[end-1]) {
		return false
	}
	switch text[end-2] {
	case '.', '!', '?', ';', '…', '。':
		return true
	}
	return text[end-1] == '\n'
}

func spaceEnd(text []rune, end int) bool {
	return end >= 1 && unicode.IsSpace(text[end-1])
}

// Normalize unifies line endings and collapses whitespace runs. Chunk offsets refer to
// the normalized text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRun.ReplaceAllString(text, " ")
	text = lineSpace.ReplaceAllString(text, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Merge rebuilds each document's normalized text from its chunks by dropping the
// overlapping prefix of every chunk after the first.
func Merge(chunks []types.Chunk, overlap int) map[int]string {
	out := make(map[int]string)
	var prevDoc = -1
	var b strings.Builder
	flush := func() {
		if prevDoc >= 0 {
			out[prevDoc] = b.String()
		}
		b.Reset()
	}
	for _, ch := range chunks {
		if ch.DocIndex != prevDoc {
			flush()
			prevDoc = ch.DocIndex
			b.WriteString(ch.Text)
			continue
		}
		r := []rune(ch.Text)
		b.WriteString(string(r[min(overlap, len(r)):]))
	}
	flush()
	return out
}
