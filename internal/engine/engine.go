package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/xesinsight/internal/analysis"
	"github.com/gyaneshwarpardhi/xesinsight/internal/config"
	"github.com/gyaneshwarpardhi/xesinsight/internal/metrics"
	"github.com/gyaneshwarpardhi/xesinsight/internal/xes"
)

var (
	// ErrQueueFull is returned when no worker slot is available.
	ErrQueueFull = errors.New("analysis queue full")
	// ErrTimeout is returned when an analysis outlives the configured timeout.
	ErrTimeout = errors.New("analysis timed out")
	// ErrShuttingDown is returned once the engine has been shut down.
	ErrShuttingDown = errors.New("analysis engine shutting down")
)

// Upload is a fully buffered, already decompressed XES document.
type Upload struct {
	Name string
	Data []byte
}

// Report is the outcome of analysing one upload.
type Report struct {
	AnalysisID string `json:"analysis_id"`
	DurationMs int64  `json:"duration_ms"`
	*analysis.Result
}

// Options are the decode and aggregation settings applied to every upload.
type Options struct {
	TracePolicy      xes.TracePolicy
	TimestampLayouts []string
}

// OptionsFrom maps the analysis section of the config.
func OptionsFrom(conf config.AnalysisConf) Options {
	return Options{
		TracePolicy:      xes.TracePolicy(conf.TracePolicy),
		TimestampLayouts: conf.TimestampLayouts,
	}
}

// Engine runs analyses on a bounded worker pool.
type Engine struct {
	opts atomic.Pointer[Options]
	pool *workerPool[*analysisWork]
	conf config.EngineConf
}

type analysisWork struct {
	ctx     context.Context
	upload  *Upload
	opts    Options
	resultC chan outcome
}

type outcome struct {
	report *Report
	err    error
}

// New creates an Engine using conf and starts its workers.
func New(ctx context.Context, conf config.EngineConf, opts Options) *Engine {
	e := &Engine{conf: conf}
	e.opts.Store(&opts)
	e.pool = newWorkerPool[*analysisWork](ctx, conf.Workers, conf.QueueDepth,
		func(_ context.Context, w *analysisWork) {
			if w.ctx.Err() != nil {
				// Caller already gave up.
				return
			}
			rep, err := Run(w.upload, w.opts)
			w.resultC <- outcome{report: rep, err: err}
		},
	)
	return e
}

// SwapOptions atomically replaces the analysis options (used on hot-reload).
func (e *Engine) SwapOptions(opts Options) {
	e.opts.Store(&opts)
}

// Options returns the options new analyses will use.
func (e *Engine) Options() Options {
	return *e.opts.Load()
}

// Analyze runs an upload on the pool and waits for its report.
func (e *Engine) Analyze(ctx context.Context, up *Upload) (*Report, error) {
	w := &analysisWork{
		ctx:     ctx,
		upload:  up,
		opts:    e.Options(),
		resultC: make(chan outcome, 1),
	}
	if !e.pool.Submit(w) {
		if e.pool.Closed() {
			return nil, ErrShuttingDown
		}
		metrics.AnalysesRejected.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.QueueUtilization.Set(e.QueueUtilization())

	timeout := time.Duration(e.conf.TimeoutMs) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.resultC:
		return res.report, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown drains the pool gracefully. Later calls to Analyze return
// ErrShuttingDown.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}

// Run decodes and aggregates one upload on the calling goroutine.
func Run(up *Upload, opts Options) (*Report, error) {
	start := time.Now()

	log, err := xes.Decode(up.Data, xes.Options{TracePolicy: opts.TracePolicy})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", up.Name, err)
	}
	metrics.EventsDecoded.Add(float64(len(log.Events)))

	res, err := analysis.Build(log.Events, analysis.Options{TimestampLayouts: opts.TimestampLayouts})
	if err != nil {
		return nil, fmt.Errorf("analyse %s: %w", up.Name, err)
	}
	res.Summary.Traces = len(log.Traces)
	res.Summary.SkippedTraces = log.SkippedTraces

	if n := res.Summary.DroppedTimestamp; n > 0 {
		metrics.RowsDropped.WithLabelValues("timestamp").Add(float64(n))
	}
	if n := res.Summary.DroppedActivity; n > 0 {
		metrics.RowsDropped.WithLabelValues("activity").Add(float64(n))
	}
	if log.SkippedTraces > 0 || res.Summary.DroppedTimestamp > 0 || res.Summary.DroppedActivity > 0 {
		slog.Debug("rows excluded from analysis",
			"file", up.Name,
			"skipped_traces", log.SkippedTraces,
			"dropped_timestamp", res.Summary.DroppedTimestamp,
			"dropped_activity", res.Summary.DroppedActivity,
		)
	}

	elapsed := time.Since(start)
	metrics.AnalysisDuration.Observe(float64(elapsed.Milliseconds()))
	return &Report{
		AnalysisID: uuid.New().String(),
		DurationMs: elapsed.Milliseconds(),
		Result:     res,
	}, nil
}
