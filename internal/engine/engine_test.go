package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/xesinsight/internal/analysis"
	"github.com/gyaneshwarpardhi/xesinsight/internal/config"
	"github.com/gyaneshwarpardhi/xesinsight/internal/metrics"
	"github.com/gyaneshwarpardhi/xesinsight/internal/xes"
)

const endToEndLog = `<log>
	<trace>
		<string key="concept:name" value="A"/>
		<event>
			<string key="concept:name" value="Start"/>
			<string key="traceId" value="A"/>
			<date key="time:timestamp" value="2024-01-01T00:00:00Z"/>
			<float key="fixedCost" value="5"/>
		</event>
		<event>
			<string key="concept:name" value="End"/>
			<string key="traceId" value="A"/>
			<date key="time:timestamp" value="2024-01-01T00:00:10Z"/>
			<float key="fixedCost" value="10"/>
		</event>
	</trace>
	<trace>
		<string key="concept:name" value="B"/>
		<event>
			<string key="concept:name" value="Start"/>
			<string key="traceId" value="B"/>
			<date key="time:timestamp" value="2024-01-01T00:00:05Z"/>
			<float key="fixedCost" value="3"/>
		</event>
	</trace>
</log>`

const namelessTraceLog = `<log>
	<trace><event><string key="concept:name" value="x"/></event></trace>
	<trace>
		<string key="concept:name" value="B"/>
		<event><string key="concept:name" value="Start"/><date key="time:timestamp" value="2024-01-01T00:00:05Z"/></event>
	</trace>
</log>`

func newTestEngine(t *testing.T, conf config.EngineConf, opts Options) *Engine {
	t.Helper()
	e := New(context.Background(), conf, opts)
	t.Cleanup(e.Shutdown)
	return e
}

func TestRun_EndToEnd(t *testing.T) {
	rep, err := Run(&Upload{Name: "demo.xes", Data: []byte(endToEndLog)}, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.AnalysisID)
	assert.Equal(t, 2, rep.Summary.Traces)
	assert.Equal(t, 3, rep.Summary.Events)

	require.Len(t, rep.CaseDurations, 2)
	assert.Equal(t, 10.0, rep.CaseDurations[0].Duration)
	assert.Equal(t, 0.0, rep.CaseDurations[1].Duration)

	require.Len(t, rep.CostsByActivity, 2)
	assert.Equal(t, "Start", rep.CostsByActivity[0].Activity)
	assert.Equal(t, 8.0, rep.CostsByActivity[0].TotalFixedCost)
	assert.Equal(t, "End", rep.CostsByActivity[1].Activity)
	assert.Equal(t, 10.0, rep.CostsByActivity[1].TotalFixedCost)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(&Upload{Name: "bad.xes", Data: []byte("<log>")}, Options{})
	assert.ErrorIs(t, err, xes.ErrMalformedLog)
	assert.Contains(t, err.Error(), "bad.xes")

	_, err = Run(&Upload{Name: "nameless.xes", Data: []byte(namelessTraceLog)}, Options{})
	assert.ErrorIs(t, err, xes.ErrInvalidTrace)

	noTime := `<log><trace><string key="concept:name" value="c"/><event><string key="concept:name" value="a"/></event></trace></log>`
	_, err = Run(&Upload{Name: "notime.xes", Data: []byte(noTime)}, Options{})
	assert.ErrorIs(t, err, analysis.ErrSchema)
}

func TestEngine_Analyze(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 2, QueueDepth: 8, TimeoutMs: 5000}, Options{})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, err := e.Analyze(context.Background(), &Upload{Name: "demo.xes", Data: []byte(endToEndLog)})
			if err == nil && len(rep.CaseDurations) != 2 {
				t.Errorf("unexpected case durations: %+v", rep.CaseDurations)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0.0, e.QueueUtilization())
}

func TestEngine_SwapOptions(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1, QueueDepth: 4, TimeoutMs: 5000}, Options{TracePolicy: xes.PolicyFail})

	_, err := e.Analyze(context.Background(), &Upload{Name: "n.xes", Data: []byte(namelessTraceLog)})
	require.ErrorIs(t, err, xes.ErrInvalidTrace)

	e.SwapOptions(OptionsFrom(config.AnalysisConf{TracePolicy: "skip"}))
	assert.Equal(t, xes.PolicySkip, e.Options().TracePolicy)

	rep, err := e.Analyze(context.Background(), &Upload{Name: "n.xes", Data: []byte(namelessTraceLog)})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.Traces)
	assert.Equal(t, 1, rep.Summary.SkippedTraces)
}

func TestEngine_TimeoutAndQueueFull(t *testing.T) {
	// No workers: jobs stay queued forever.
	e := newTestEngine(t, config.EngineConf{Workers: 0, QueueDepth: 1, TimeoutMs: 20}, Options{})
	up := &Upload{Name: "demo.xes", Data: []byte(endToEndLog)}

	_, err := e.Analyze(context.Background(), up)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1.0, e.QueueUtilization())
	// Gauge tracks submissions without waiting for a /readyz scrape.
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueueUtilization))

	_, err = e.Analyze(context.Background(), up)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestEngine_CallerCancelled(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 0, QueueDepth: 1, TimeoutMs: 60000}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, &Upload{Name: "demo.xes", Data: []byte(endToEndLog)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_AnalyzeAfterShutdown(t *testing.T) {
	cases := []struct {
		name string
		conf config.EngineConf
	}{
		{name: "idle workers", conf: config.EngineConf{Workers: 1, QueueDepth: 2, TimeoutMs: 5000}},
		{name: "no workers", conf: config.EngineConf{Workers: 0, QueueDepth: 2, TimeoutMs: 5000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, tc.conf, Options{})
			e.Shutdown()

			require.NotPanics(t, func() {
				_, err := e.Analyze(context.Background(), &Upload{Name: "late.xes", Data: []byte(endToEndLog)})
				assert.ErrorIs(t, err, ErrShuttingDown)
			})
			// A second Shutdown (as from t.Cleanup) must not close the queue twice.
			assert.NotPanics(t, e.Shutdown)
		})
	}
}
