package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestStorage_AppendAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	err := s.Append(ctx, []domain.ChunkRecord{
		{Text: "A", SourceFile: "a.txt"},
		{Text: "B", SourceFile: "b.txt"},
	}, [][]float32{{1, 0}, {0, 1}}, "p")
	require.NoError(t, err)

	res, err := s.Search(ctx, []float32{0.9, 0.1}, 1, "p")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].Record.Text)
	assert.Equal(t, "a.txt", res[0].Record.SourceFile)
}

func TestStorage_FailedAppendLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Append(ctx, []domain.ChunkRecord{{Text: "A"}}, [][]float32{{1, 0}}, "p"))

	err := s.Append(ctx, []domain.ChunkRecord{{Text: "B"}, {Text: "C"}}, [][]float32{{1, 0}, {1, 0, 0}}, "p")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 2, stats.Dimension)
}

func TestStorage_ConcurrentAppendsKeepParallelSlices(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, []domain.ChunkRecord{{Text: "x"}, {Text: "y"}}, [][]float32{{1, 1}, {2, 2}}, "p")
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, stats.Count)
	assert.True(t, s.state.Consistent())
}
