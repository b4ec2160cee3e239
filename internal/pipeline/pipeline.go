// Package pipeline resolves batches of videos on a bounded worker pool.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/challenge-resolver/internal/model"
)

// Resolver resolves one video. *chain.Chain satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, rec *model.VideoRecord) model.ExtractionResult
}

// Summary describes a finished run.
type Summary struct {
	RunID           string                        `json:"run_id"`
	Total           int                           `json:"total"`
	Processed       int                           `json:"processed"`
	Resolved        int                           `json:"resolved"`
	WithCoordinates int                           `json:"with_coordinates"`
	BySource        map[model.Source]int          `json:"by_source"`
	ByResult        map[model.ChallengeResult]int `json:"by_result"`
	SinkErrors      int                           `json:"sink_errors"`
	Duration        time.Duration                 `json:"duration"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink streams every result to s in input order.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithMetrics records per-video metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner processes videos concurrently. One Runner may serve several runs.
type Runner struct {
	resolver    Resolver
	concurrency int
	sink        Sink
	metrics     *Metrics
}

// NewRunner creates a Runner with at most concurrency videos in flight.
func NewRunner(resolver Resolver, concurrency int, opts ...Option) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	r := &Runner{resolver: resolver, concurrency: concurrency}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run resolves records and returns their results in input order. A video
// never fails the batch; Run only returns an error when ctx is cancelled
// before every video started, or when the sink rejected a result.
func (r *Runner) Run(ctx context.Context, records []*model.VideoRecord) ([]model.ExtractionResult, Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting run", zap.Int("videos", len(records)), zap.Int("concurrency", r.concurrency))

	results := make([]model.ExtractionResult, len(records))
	done := make([]bool, len(records))
	emit := newOrderedEmitter(ctx, r.sink, results, done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	started := 0
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			videoStart := time.Now()
			res := r.resolver.Resolve(gctx, rec)
			if r.metrics != nil {
				r.metrics.observeVideo(res, time.Since(videoStart))
			}
			emit.complete(i, res)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(runID, len(records), results, done)
	summary.SinkErrors = emit.errors()
	summary.Duration = time.Since(start)
	log.Info("pipeline: run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("resolved", summary.Resolved),
		zap.Int("with_coordinates", summary.WithCoordinates),
		zap.Int("sink_errors", summary.SinkErrors),
		zap.Duration("duration", summary.Duration),
	)

	if started < len(records) {
		return results, summary, eris.Wrapf(ctx.Err(), "pipeline: run %s cancelled after %d of %d videos", runID, started, len(records))
	}
	if err := emit.firstErr(); err != nil {
		return results, summary, err
	}
	return results, summary, nil
}

func summarize(runID string, total int, results []model.ExtractionResult, done []bool) Summary {
	s := Summary{
		RunID:    runID,
		Total:    total,
		BySource: make(map[model.Source]int),
		ByResult: make(map[model.ChallengeResult]int),
	}
	for i, res := range results {
		if !done[i] {
			continue
		}
		s.Processed++
		if res.Resolved() {
			s.Resolved++
			s.BySource[res.Source]++
		}
		if res.Lat != nil {
			s.WithCoordinates++
		}
		s.ByResult[res.Result]++
	}
	return s
}

// orderedEmitter forwards results to the sink in input order as the
// contiguous prefix of finished videos grows.
type orderedEmitter struct {
	ctx     context.Context
	sink    Sink
	results []model.ExtractionResult
	done    []bool

	mu   sync.Mutex
	next int
	errs int
	err  error
}

func newOrderedEmitter(ctx context.Context, sink Sink, results []model.ExtractionResult, done []bool) *orderedEmitter {
	return &orderedEmitter{ctx: ctx, sink: sink, results: results, done: done}
}

func (e *orderedEmitter) complete(i int, res model.ExtractionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[i] = res
	e.done[i] = true
	if e.sink == nil {
		return
	}
	for e.next < len(e.done) && e.done[e.next] {
		if err := e.sink.Write(e.ctx, e.results[e.next]); err != nil {
			e.errs++
			if e.err == nil {
				e.err = eris.Wrapf(err, "pipeline: sink write for video %s", e.results[e.next].VideoID)
			}
			zap.L().Error("pipeline: sink write failed",
				zap.String("video_id", e.results[e.next].VideoID),
				zap.Error(err),
			)
		}
		e.next++
	}
}

func (e *orderedEmitter) errors() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs
}

func (e *orderedEmitter) firstErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
