package agent

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"docsum/types"
)

const (
	StyleBrief = "brief"
	StyleStudy = "study"
)

const briefTemplate = `You are a document summarization assistant.
Answer only from the passages retrieved from the document below. Do not add outside knowledge.

Your task:
- Summarize the document in simple words for a beginner
- Keep the answer short and direct
- Skip examples, repetition and minor details

Output format:
Title: one short line
Summary: 3 to 5 bullet points, one sentence each
Key takeaway: one sentence

Write the whole answer in {{.language}}.

Context from document:
{{.context}}

Question: {{.question}}
`

const studyTemplate = `You are a document summarization and study assistant.
Answer only from the passages retrieved from the document below. Do not add outside knowledge and do not invent anything the document does not say.
The length of the answer should follow the length of the document. Keep every important detail.

Write the whole answer in {{.language}}, using simple and clear sentences.

Part 1: Structured summary
- Document title (one line)
- General summary (one or two short paragraphs)

Part 2: Key topics
For each main topic of the document give its title, an explanation of four to eight lines and a bullet list of points to remember.

Part 3: Exam questions
List 10 to 15 numbered questions an examiner could ask about this document: definitions, explanations, comparisons, "why" and "how" questions, short essays.

Part 4: Answers
Answer every question from part 3 under the same number, using only the document.

Context from document:
{{.context}}

Question:
{{.question}}
`

var templates = map[string]string{
	StyleBrief: briefTemplate,
	StyleStudy: studyTemplate,
}

// Assembler renders retrieved chunks and the summary question into a prompt.
type Assembler struct {
	tmpl     prompts.PromptTemplate
	style    string
	language string
}

func NewAssembler(style, language string) (*Assembler, error) {
	text, ok := templates[style]
	if !ok {
		return nil, fmt.Errorf("unknown prompt style %q", style)
	}
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	return &Assembler{
		tmpl:     prompts.NewPromptTemplate(text, []string{"context", "question", "language"}),
		style:    style,
		language: language,
	}, nil
}

func (a *Assembler) Style() string {
	return a.style
}

func (a *Assembler) Render(chunks []types.Chunk, question string) (string, error) {
	prompt, err := a.tmpl.Format(map[string]any{
		"context":  JoinContext(chunks),
		"question": question,
		"language": a.language,
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", a.style, err)
	}
	return prompt, nil
}

// JoinContext concatenates chunk texts in retrieval order, separated by blank lines.
func JoinContext(chunks []types.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}
