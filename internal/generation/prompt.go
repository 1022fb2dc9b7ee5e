// Package generation holds the grounded prompt shared by answer generators.
package generation

import (
	"strings"
)

// NotEnoughInformation is the answer given when the context cannot answer the question.
const NotEnoughInformation = "Not enough information in retrieved data."

// Default sampling parameters for LLM generators.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
)

// SystemPrompt instructs the model to stay within the retrieved context.
const SystemPrompt = `You are a focused and concise analyst answering questions about the user's documents.

Strictly follow these instructions:
- Use only the information provided in the retrieved context. Do not make assumptions.
- Give structured, specific and concise answers; go into depth only when the question asks for it.
- Do not repeat the context or the question.
- Maintain a professional, analytical tone.
- If the context is insufficient to answer, reply exactly: "` + NotEnoughInformation + `"`

// BuildPrompt renders the user prompt for question grounded in contexts.
func BuildPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("### Retrieved Context:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	b.WriteString("\n\n### User Query:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n### Your Answer:\n")
	return b.String()
}
