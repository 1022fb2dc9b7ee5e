// Package embedding holds helpers shared by embedding providers.
package embedding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

// DefaultWorkers bounds concurrent Embed calls in EmbedAll.
const DefaultWorkers = 10

// Identity builds the provider name recorded in a vector store.
func Identity(provider, model string) string {
	return provider + ":" + model
}

// EmbedAll embeds texts with at most workers concurrent calls, preserving order.
func EmbedAll(ctx context.Context, e domain.Embedder, texts []string, workers int) ([][]float32, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	out := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range texts {
		g.Go(func() error {
			v, err := e.Embed(ctx, texts[i])
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
