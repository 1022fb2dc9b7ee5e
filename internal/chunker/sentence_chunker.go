package chunker

import (
	"regexp"
	"strings"

	"docqa/internal/domain"
)

var _ domain.Chunker = (*SentenceChunker)(nil)

// Default sentence window sizes.
const (
	DefaultSentencesPerChunk = 5
	DefaultOverlapSentences  = 1
)

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

// NewSentenceChunker creates a chunker grouping sentencesPerChunk sentences per
// chunk, with consecutive chunks sharing overlapSentences sentences.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Chunk returns the chunk texts for text. Blank input yields no chunks.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(sentences); {
		end := min(i+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

// Sentences splits text on terminal punctuation. Whitespace is collapsed and
// a trailing fragment without punctuation is kept as its own sentence.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := collapse(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := collapse(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
