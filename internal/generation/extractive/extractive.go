// Package extractive answers questions offline by selecting context sentences.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/generation"
)

var _ domain.Generator = (*Generator)(nil)

// DefaultMaxSentences bounds the answer length.
const DefaultMaxSentences = 3

// Generator ranks context sentences by overlap with the question, breaking
// ties by normalized term frequency across the whole context, and answers
// with the best sentences in their original order.
type Generator struct {
	maxSentences int
}

// NewGenerator creates an extractive generator returning at most maxSentences sentences.
func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{maxSentences: maxSentences}
}

// Name identifies the generator in logs.
func (g *Generator) Name() string { return "extractive" }

type candidate struct {
	idx     int
	text    string
	overlap int
	score   float64
}

// Generate never fails except on a cancelled context. Without any sentence
// sharing a term with the question it returns generation.NotEnoughInformation.
func (g *Generator) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := map[string]struct{}{}
	for _, t := range chunker.Terms(question) {
		query[t] = struct{}{}
	}

	seen := map[string]struct{}{}
	var sentences []string
	for _, c := range contexts {
		for _, s := range chunker.Sentences(c) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 || len(query) == 0 {
		return generation.NotEnoughInformation, nil
	}

	freq := map[string]float64{}
	for _, s := range sentences {
		for _, t := range chunker.Terms(s) {
			freq[t]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	var ranked []candidate
	for i, s := range sentences {
		terms := chunker.Terms(s)
		c := candidate{idx: i, text: s}
		matched := map[string]struct{}{}
		for _, t := range terms {
			c.score += freq[t] / maxF
			if _, ok := query[t]; ok {
				matched[t] = struct{}{}
			}
		}
		c.overlap = len(matched)
		if c.overlap == 0 {
			continue
		}
		c.score /= math.Sqrt(float64(len(terms)))
		ranked = append(ranked, c)
	}
	if len(ranked) == 0 {
		return generation.NotEnoughInformation, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > g.maxSentences {
		ranked = ranked[:g.maxSentences]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.text
	}
	return strings.Join(out, " "), nil
}
