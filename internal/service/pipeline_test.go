package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/generation"
	"docqa/internal/generation/extractive"
	"docqa/internal/ingest"
	"docqa/internal/message"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/file"
)

func newTestPipeline(store vectorstore.Storage, emb domain.Embedder, gen domain.Generator, opts Options, log *slog.Logger) *Pipeline {
	in := ingest.New(chunker.NewSentenceChunker(5, 1), chunker.NewRowChunker(20))
	return NewPipeline(in, NewIndexer(emb, store, 0, log), NewRetriever(emb, store, log), gen, opts, log)
}

func messageTypes(msgs []message.Message) []message.Type {
	out := make([]message.Type, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type()
	}
	return out
}

func TestPipeline_AnswersFromIndexedFile(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	store := newRecordingStore()
	p := newTestPipeline(store, testEmbedder(), extractive.NewGenerator(3), Options{}, nil)

	res, err := p.Run(context.Background(), []string{a}, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{a: 1}, res.Indexed)
	assert.Empty(t, res.Failures)
	assert.False(t, res.Degraded)
	require.NotEmpty(t, res.Contexts)
	assert.Contains(t, res.Contexts[0], "Paris")
	assert.Equal(t, "Paris is the capital of France.", res.Answer)
	assert.Equal(t, []string{"a.txt"}, store.appends)
}

func TestPipeline_RepeatedPathSumsIndexedCounts(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	store := newRecordingStore()
	p := newTestPipeline(store, testEmbedder(), extractive.NewGenerator(3), Options{}, nil)

	res := p.IndexFiles(context.Background(), []string{a, a})
	assert.Empty(t, res.Failures)
	assert.Equal(t, map[string]int{a: 2}, res.Indexed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
}

func TestPipeline_PartialFailureContinues(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	b := writeDoc(t, dir, "b.unsupported", "ignored")
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(3), Options{}, nil)

	res, err := p.Run(context.Background(), []string{a, b}, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{a: 1}, res.Indexed)
	require.Len(t, res.Failures, 1)
	failure := res.Failures[0]
	assert.Equal(t, message.TypeError, failure.Type())
	payload := failure.Payload().(message.Error)
	assert.Equal(t, b, payload.FilePath)
	assert.Contains(t, payload.Message, "unsupported file format")
	assert.Contains(t, res.Answer, "Paris")

	assert.Equal(t, []message.Type{
		message.TypeIngest, message.TypeIngest,
		message.TypeIndex, message.TypeError,
		message.TypeRetrieve, message.TypeGenerate, message.TypeAnswer,
	}, messageTypes(res.Trace))
}

func TestPipeline_SingleTraceIDPerRun(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	b := writeDoc(t, dir, "b.docx", "ignored")
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(3), Options{}, nil)

	first, err := p.Run(context.Background(), []string{a, b}, "capital of France")
	require.NoError(t, err)
	require.NotEmpty(t, first.TraceID)
	for _, m := range first.Trace {
		assert.Equal(t, first.TraceID, m.TraceID(), "message %s", m.Type())
	}

	second, err := p.Ask(context.Background(), "capital of France")
	require.NoError(t, err)
	assert.NotEqual(t, first.TraceID, second.TraceID)
}

func TestPipeline_AppendsInInputOrder(t *testing.T) {
	dir := t.TempDir()
	var files, names []string
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("doc%d.txt", i)
		files = append(files, writeDoc(t, dir, name, fmt.Sprintf("Document number %d talks about topic %d.", i, i)))
		names = append(names, name)
	}
	store := newRecordingStore()
	p := newTestPipeline(store, testEmbedder(), extractive.NewGenerator(1), Options{Workers: 4}, nil)

	res := p.IndexFiles(context.Background(), files)
	assert.Len(t, res.Indexed, 8)
	assert.Equal(t, names, store.appends)
}

func TestPipeline_GenerationFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	gen := stubGenerator{err: fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New("upstream 503"))}
	p := newTestPipeline(newRecordingStore(), testEmbedder(), gen, Options{}, nil)

	res, err := p.Run(context.Background(), []string{a}, "capital of France")
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.Equal(t, "generation failed: upstream 503", res.Answer)
	assert.Equal(t, []string{"Paris is the capital of France."}, res.Contexts)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageGeneration, res.Failures[0].Sender())

	last := res.Trace[len(res.Trace)-1]
	require.Equal(t, message.TypeAnswer, last.Type())
	assert.Equal(t, res.Contexts, last.Payload().(message.Answer).ContextUsed)
}

func TestPipeline_GenerationTimeout(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	p := newTestPipeline(newRecordingStore(), testEmbedder(), stubGenerator{block: true}, Options{GenerateTimeout: 20 * time.Millisecond}, nil)

	res, err := p.Run(context.Background(), []string{a}, "capital of France")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "generation failed: context deadline exceeded", res.Answer)
}

func TestPipeline_EmptyStoreAbortsRun(t *testing.T) {
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(1), Options{}, nil)

	res, err := p.Ask(context.Background(), "capital of France")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyStore)
	require.NotNil(t, res)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageRetrieval, res.Failures[0].Sender())
	assert.Empty(t, res.Answer)
}

func TestPipeline_EmptyQuery(t *testing.T) {
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(1), Options{}, nil)
	_, err := p.Ask(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_NotEnoughInformation(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Revenue increased by 20% this quarter.")
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(1), Options{}, nil)

	res, err := p.Run(context.Background(), []string{a}, "capital of France")
	require.NoError(t, err)
	assert.Equal(t, generation.NotEnoughInformation, res.Answer)
}

func TestPipeline_PersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	storeDir := filepath.Join(dir, "store")

	store, err := file.Open(storeDir)
	require.NoError(t, err)
	p := newTestPipeline(store, testEmbedder(), extractive.NewGenerator(1), Options{}, nil)
	res := p.IndexFiles(context.Background(), []string{a})
	require.Equal(t, 1, res.Indexed[a])
	require.NoError(t, store.Close())

	reopened, err := file.Open(storeDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	p = newTestPipeline(reopened, testEmbedder(), extractive.NewGenerator(1), Options{}, nil)

	ans, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", ans.Answer)
}

func TestPipeline_LogsMessagesInWireForm(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.txt", "Paris is the capital of France.")
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := newTestPipeline(newRecordingStore(), testEmbedder(), extractive.NewGenerator(1), Options{}, log)

	res, err := p.Run(context.Background(), []string{a}, "capital of France")
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, len(res.Trace), strings.Count(out, "msg=message"))
	assert.Contains(t, out, "trace_id="+res.TraceID)
	assert.Contains(t, out, `\"type\":\"retrieve\"`)
}
