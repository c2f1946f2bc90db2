package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsum/types"
)

const sample = `Retrieval augmented generation combines search with a language model. The retriever finds passages; the model writes the answer.

Chunking matters. Windows that are too small lose context, windows that are too large dilute relevance!

Overlap keeps sentences that straddle a boundary available to both neighbouring chunks. Is that enough? Usually it is.`

func randomText(r *rand.Rand, n int) string {
	words := []string{"alpha", "beta", "gamma", "delta.", "epsilon", "zeta!", "eta", "théta", "iota?", "kappa\n", "lambda\n\n", "μυ"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(words[r.Intn(len(words))])
		b.WriteString(" ")
	}
	return b.String()
}

func TestNew_RejectsBadParams(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)
	_, err = New(2, 1)
	assert.Error(t, err)
	_, err = New(100, 100)
	assert.Error(t, err)
	_, err = New(100, -1)
	assert.Error(t, err)

	c, err := New(100, 99)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Size())
	assert.Equal(t, 99, c.Overlap())
}

func TestSplit_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	params := [][2]int{{1200, 300}, {200, 50}, {64, 0}, {40, 39}, {10, 3}}

	for _, p := range params {
		c, err := New(p[0], p[1])
		require.NoError(t, err)

		docs := []types.Document{
			{Text: sample},
			{Text: randomText(r, 600)},
			{Text: strings.Repeat("x", 3*p[0]+7)}, // no break opportunities
		}
		chunks := c.Split(docs)
		require.NotEmpty(t, chunks)

		for i, ch := range chunks {
			assert.Equal(t, i, ch.Seq)
			assert.NotEmpty(t, strings.TrimSpace(ch.Text))
			assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), p[0])

			if i == 0 || chunks[i-1].DocIndex != ch.DocIndex {
				continue
			}
			prev := []rune(chunks[i-1].Text)
			cur := []rune(ch.Text)
			require.GreaterOrEqual(t, len(cur), p[1])
			assert.Equal(t, string(prev[len(prev)-p[1]:]), string(cur[:p[1]]),
				"chunks %d and %d must share exactly %d runes", i-1, i, p[1])
			assert.Equal(t, chunks[i-1].Offset+len(prev)-p[1], ch.Offset)
		}

		merged := Merge(chunks, p[1])
		for i, d := range docs {
			assert.Equal(t, Normalize(d.Text), merged[i])
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := New(120, 30)
	require.NoError(t, err)
	docs := []types.Document{{Text: sample}, {Text: sample + "\n\nTail."}}

	first := c.Split(docs)
	second := c.Split(docs)
	assert.Equal(t, first, second)
}

func TestSplit_PrefersBoundaries(t *testing.T) {
	c, err := New(120, 20)
	require.NoError(t, err)

	chunks := c.Split([]types.Document{{Text: sample}})
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks[:len(chunks)-1] {
		last, _ := utf8.DecodeLastRuneInString(ch.Text)
		assert.Contains(t, " \n", string(last), "chunk should end on whitespace: %q", ch.Text)
	}
}

func TestSplit_HardCutLongSpan(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Split([]types.Document{{Text: strings.Repeat("a", 25)}})
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 8, chunks[1].Offset)
	assert.Equal(t, 16, chunks[2].Offset)
	assert.Equal(t, 9, len(chunks[2].Text))
}

func TestSplit_DocumentBoundaries(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	chunks := c.Split([]types.Document{{Text: "page one"}, {Text: "   "}, {Text: "page three"}})
	require.Len(t, chunks, 2)
	assert.Equal(t, "page one", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].DocIndex)
	assert.Equal(t, "page three", chunks[1].Text)
	assert.Equal(t, 2, chunks[1].DocIndex)
	assert.Equal(t, 0, chunks[1].Offset)
}

func TestNormalize(t *testing.T) {
	in := "Title\r\n\r\n\r\n  body \t text \n \n\nnext\rline  "
	want := "Title\n\nbody text\n\nnext\nline"
	assert.Equal(t, want, Normalize(in))
	assert.Equal(t, want, Normalize(want))
	assert.Equal(t, "a b", Normalize("a\u00a0\u3000\u2009b"))
}

func TestSplit_WhitespaceRunsKeepOverlap(t *testing.T) {
	texts := []string{"a\n\nb", "ab\n\ncd", "x.\n\ny z\n\nw", "a\n\nb\n\nc\n\nd"}
	params := [][2]int{{3, 0}, {3, 1}, {3, 2}, {4, 1}, {5, 2}}

	for _, text := range texts {
		for _, p := range params {
			c, err := New(p[0], p[1])
			require.NoError(t, err)

			chunks := c.Split([]types.Document{{Text: text}})
			require.NotEmpty(t, chunks)
			for i, ch := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(ch.Text), "text %q params %v", text, p)
				if i > 0 {
					assert.Equal(t, chunks[i-1].Offset+utf8.RuneCountInString(chunks[i-1].Text)-p[1], ch.Offset,
						"text %q params %v", text, p)
				}
			}
			assert.Equal(t, text, Merge(chunks, p[1])[0], "params %v", p)
		}
	}
}
