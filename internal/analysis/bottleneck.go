package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/xesinsight/internal/event"
)

// Bottleneck is the wait between an activity being assigned and completed
// within one case.
type Bottleneck struct {
	TraceID  string  `json:"traceId"`
	Activity string  `json:"activity"`
	WaitTime float64 `json:"wait_time"` // minutes
}

type waitKey struct {
	traceID  string
	activity string
}

type waitSpan struct {
	assigns   []time.Time
	completes []time.Time
}

// Bottlenecks measures, per (traceId, activity), the minutes from the earliest
// "assign" transition to the earliest "complete" at or after it. Pairs missing
// either transition are left out.
func Bottlenecks(t *Table) []Bottleneck {
	out := []Bottleneck{}
	if !t.Has(event.KeyTraceID) || !t.Has(event.KeyLifecycle) {
		return out
	}

	spans := make(map[waitKey]*waitSpan)
	for _, r := range t.Rows {
		id, ok := r.Attrs.Get(event.KeyTraceID)
		if !ok {
			continue
		}
		transition := strings.ToLower(strings.TrimSpace(r.Attrs[event.KeyLifecycle]))
		if transition != "assign" && transition != "complete" {
			continue
		}
		k := waitKey{traceID: id, activity: r.Activity}
		s, ok := spans[k]
		if !ok {
			s = &waitSpan{}
			spans[k] = s
		}
		if transition == "assign" {
			s.assigns = append(s.assigns, r.Timestamp)
		} else {
			s.completes = append(s.completes, r.Timestamp)
		}
	}

	for k, s := range spans {
		wait, ok := s.wait()
		if !ok {
			continue
		}
		out = append(out, Bottleneck{TraceID: k.traceID, Activity: k.activity, WaitTime: wait.Minutes()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TraceID != out[j].TraceID {
			return out[i].TraceID < out[j].TraceID
		}
		return out[i].Activity < out[j].Activity
	})
	return out
}

func (s *waitSpan) wait() (time.Duration, bool) {
	if len(s.assigns) == 0 || len(s.completes) == 0 {
		return 0, false
	}
	assigned := s.assigns[0]
	for _, ts := range s.assigns[1:] {
		if ts.Before(assigned) {
			assigned = ts
		}
	}
	var completed time.Time
	found := false
	for _, ts := range s.completes {
		if ts.Before(assigned) {
			continue
		}
		if !found || ts.Before(completed) {
			completed = ts
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return completed.Sub(assigned), true
}
