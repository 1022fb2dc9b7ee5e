package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/ingest"
	"docqa/internal/message"
)

// Stage names used as message senders and receivers.
const (
	StageCoordinator = "coordinator"
	StageIngestion   = "ingestion"
	StageIndexing    = "indexing"
	StageRetrieval   = "retrieval"
	StageGeneration  = "generation"
)

// Pipeline defaults.
const (
	DefaultTopK            = 15
	DefaultWorkers         = 4
	DefaultGenerateTimeout = 60 * time.Second
)

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	TopK            int
	Workers         int
	GenerateTimeout time.Duration
}

// Result is the outcome of one pipeline run.
type Result struct {
	TraceID  string
	Answer   string
	Contexts []string
	// Indexed maps each successfully indexed file to its number of new entries,
	// summed when a path is given more than once.
	Indexed map[string]int
	// Failures holds the ERROR messages of the run, per file or for generation.
	Failures []message.Message
	// Degraded is set when generation failed and Answer explains the failure.
	Degraded bool
	// Trace holds every message of the run in the order it was produced.
	Trace []message.Message
}

// Pipeline sequences ingestion, indexing, retrieval and generation for one query.
type Pipeline struct {
	ingestor  domain.Ingestor
	indexer   *Indexer
	retriever *Retriever
	generator domain.Generator
	opts      Options
	log       *slog.Logger
}

// NewPipeline wires the stages together.
func NewPipeline(ingestor domain.Ingestor, indexer *Indexer, retriever *Retriever, generator domain.Generator, opts Options, log *slog.Logger) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	return &Pipeline{
		ingestor:  ingestor,
		indexer:   indexer,
		retriever: retriever,
		generator: generator,
		opts:      opts,
		log:       orDiscard(log),
	}
}

// Ask answers query from what is already indexed.
func (p *Pipeline) Ask(ctx context.Context, query string) (*Result, error) {
	return p.Run(ctx, nil, query)
}

// Run indexes files, then answers query from the whole store.
//
// Files that cannot be read or indexed are reported in Result.Failures and do
// not stop the run. A retrieval error aborts the run; the partial Result is
// returned alongside it. A generation error yields a degraded answer.
func (p *Pipeline) Run(ctx context.Context, files []string, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	run := p.newRun()
	p.indexFiles(ctx, run, files)

	if _, err := run.emit(StageCoordinator, StageRetrieval, message.Retrieve{Query: query, TopK: p.opts.TopK}); err != nil {
		return run.res, err
	}
	contexts, err := p.retriever.Retrieve(ctx, query, p.opts.TopK)
	if err != nil {
		_, _ = run.emitFailure(StageRetrieval, message.Error{Message: err.Error()})
		return run.res, fmt.Errorf("retrieve: %w", err)
	}
	if contexts == nil {
		contexts = []string{}
	}
	run.res.Contexts = contexts

	if _, err := run.emit(StageRetrieval, StageGeneration, message.Generate{Question: query, Context: contexts}); err != nil {
		return run.res, err
	}
	gctx, cancel := context.WithTimeout(ctx, p.opts.GenerateTimeout)
	answer, err := p.generator.Generate(gctx, query, contexts)
	cancel()
	if err != nil {
		run.log.Warn("generation failed", "generator", p.generator.Name(), "error", err)
		answer = degradedAnswer(err)
		run.res.Degraded = true
		if _, err := run.emitFailure(StageGeneration, message.Error{Message: err.Error()}); err != nil {
			return run.res, err
		}
	}
	run.res.Answer = answer

	if _, err := run.emit(StageGeneration, StageCoordinator, message.Answer{Answer: answer, ContextUsed: contexts}); err != nil {
		return run.res, err
	}
	return run.res, nil
}

// degradedAnswer explains a generation failure in place of an answer.
func degradedAnswer(err error) string {
	reason := strings.TrimPrefix(err.Error(), domain.ErrGeneration.Error()+": ")
	return domain.ErrGeneration.Error() + ": " + reason
}

// IndexFiles runs the ingestion and indexing stages only.
func (p *Pipeline) IndexFiles(ctx context.Context, files []string) *Result {
	run := p.newRun()
	p.indexFiles(ctx, run, files)
	return run.res
}

type fileOutcome struct {
	batch message.Index
	err   error
}

// indexFiles ingests and embeds files concurrently, then appends the batches
// one at a time in input order.
func (p *Pipeline) indexFiles(ctx context.Context, run *runState, files []string) {
	if len(files) == 0 {
		return
	}
	outcomes := make([]fileOutcome, len(files))
	for i, path := range files {
		docType := ingest.DocType(path)
		if docType == "" {
			docType = "unknown"
		}
		_, outcomes[i].err = run.emit(StageCoordinator, StageIngestion, message.Ingest{DocType: docType, FilePath: path})
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, path := range files {
		if outcomes[i].err != nil {
			continue
		}
		g.Go(func() error {
			chunks, err := p.ingestor.Ingest(ctx, path)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].batch, outcomes[i].err = p.indexer.Embed(ctx, chunks, filepath.Base(path))
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range files {
		out := outcomes[i]
		if out.err != nil {
			run.log.Warn("file skipped", "file", path, "error", out.err)
			_, _ = run.emitFailure(StageIngestion, message.Error{Message: out.err.Error(), FilePath: path})
			continue
		}
		if _, err := run.emit(StageIngestion, StageIndexing, out.batch); err != nil {
			_, _ = run.emitFailure(StageIngestion, message.Error{Message: err.Error(), FilePath: path})
			continue
		}
		n, err := p.indexer.Apply(ctx, out.batch)
		if err != nil {
			run.log.Warn("file not indexed", "file", path, "error", err)
			_, _ = run.emitFailure(StageIndexing, message.Error{Message: err.Error(), FilePath: path})
			continue
		}
		run.res.Indexed[path] += n
	}
}

// runState builds the messages of one run under a single trace id.
type runState struct {
	res *Result
	log *slog.Logger
}

func (p *Pipeline) newRun() *runState {
	traceID := message.NewTraceID()
	return &runState{
		res: &Result{TraceID: traceID, Indexed: map[string]int{}},
		log: p.log.With("trace_id", traceID),
	}
}

func (r *runState) emit(sender, receiver string, payload message.Payload) (message.Message, error) {
	m, err := message.New(sender, receiver, payload, message.WithTraceID(r.res.TraceID))
	if err != nil {
		return message.Message{}, err
	}
	r.res.Trace = append(r.res.Trace, m)
	if r.log.Enabled(context.Background(), slog.LevelDebug) {
		if wire, err := json.Marshal(m); err == nil {
			r.log.Debug("message", "type", string(m.Type()), "wire", string(wire))
		}
	}
	return m, nil
}

func (r *runState) emitFailure(sender string, payload message.Error) (message.Message, error) {
	m, err := r.emit(sender, StageCoordinator, payload)
	if err != nil {
		return m, err
	}
	r.res.Failures = append(r.res.Failures, m)
	return m, nil
}
