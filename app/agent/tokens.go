package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"docsum/types"
)

// Counter counts prompt tokens.
type Counter interface {
	Count(text string) int
}

var _ Counter = (*TiktokenCounter)(nil)

type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding. It is close enough to the
// llama tokenizer for budgeting.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// TrimToBudget drops the lowest ranked chunks until their joined context fits in budget
// tokens. The top chunk is always kept. A non-positive budget or nil counter disables trimming.
func TrimToBudget(chunks []types.Chunk, budget int, c Counter) []types.Chunk {
	if budget <= 0 || c == nil || len(chunks) <= 1 {
		return chunks
	}
	n := len(chunks)
	for n > 1 && c.Count(JoinContext(chunks[:n])) > budget {
		n--
	}
	return chunks[:n]
}
