package analysis

import (
	"sort"
	"time"

	"github.com/gyaneshwarpardhi/xesinsight/internal/event"
)

// NodeTypeCount is one row of the nodeTypeCounts table.
type NodeTypeCount struct {
	NodeType string `json:"nodeType"`
	Count    int    `json:"count"`
}

// TimeCount is one row of the eventsOverTime table.
type TimeCount struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// CaseDuration is one row of the caseDurations table.
type CaseDuration struct {
	TraceID   string    `json:"traceId"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // seconds
}

// ActivityCost is one row of the costsByActivity table.
type ActivityCost struct {
	Activity          string  `json:"activity"`
	TotalFixedCost    float64 `json:"total_fixed_cost"`
	TotalResourceCost float64 `json:"total_resource_cost"`
	TotalCost         float64 `json:"total_cost"`
}

// Summary describes how the input was reduced to rows.
type Summary struct {
	Traces           int    `json:"traces"`
	SkippedTraces    int    `json:"skipped_traces"`
	Events           int    `json:"events"`
	Rows             int    `json:"rows"`
	DroppedTimestamp int    `json:"dropped_timestamp"`
	DroppedActivity  int    `json:"dropped_activity"`
	TimestampColumn  string `json:"timestamp_column"`
}

// Result bundles every aggregate table. Tables are never nil so they always
// serialize as arrays.
type Result struct {
	NodeTypeCounts  []NodeTypeCount `json:"nodeTypeCounts"`
	EventsOverTime  []TimeCount     `json:"eventsOverTime"`
	CaseDurations   []CaseDuration  `json:"caseDurations"`
	CostsByActivity []ActivityCost  `json:"costsByActivity"`
	Bottlenecks     []Bottleneck    `json:"bottlenecks"`
	Summary         Summary         `json:"summary"`
}

// Build flattens events and computes all aggregates.
func Build(events []event.Event, opts Options) (*Result, error) {
	t, err := Flatten(events, opts)
	if err != nil {
		return nil, err
	}
	return &Result{
		NodeTypeCounts:  NodeTypeCounts(t),
		EventsOverTime:  EventsOverTime(t),
		CaseDurations:   CaseDurations(t),
		CostsByActivity: CostsByActivity(t),
		Bottlenecks:     Bottlenecks(t),
		Summary: Summary{
			Events:           len(events),
			Rows:             len(t.Rows),
			DroppedTimestamp: t.DroppedTimestamp,
			DroppedActivity:  t.DroppedActivity,
			TimestampColumn:  t.TimestampColumn,
		},
	}, nil
}

// NodeTypeCounts counts rows per nodeType, ascending by nodeType.
// Empty when no input event carries the column.
func NodeTypeCounts(t *Table) []NodeTypeCount {
	out := []NodeTypeCount{}
	if !t.Has(event.KeyNodeType) {
		return out
	}
	counts := make(map[string]int)
	for _, r := range t.Rows {
		if nt, ok := r.Attrs.Get(event.KeyNodeType); ok {
			counts[nt]++
		}
	}
	for nt, c := range counts {
		out = append(out, NodeTypeCount{NodeType: nt, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeType < out[j].NodeType })
	return out
}

// EventsOverTime counts rows per exact timestamp, ascending.
func EventsOverTime(t *Table) []TimeCount {
	buckets := make(map[int64]int)
	for _, r := range t.Rows {
		buckets[r.Timestamp.UnixNano()]++
	}
	out := make([]TimeCount, 0, len(buckets))
	for ns, c := range buckets {
		out = append(out, TimeCount{Timestamp: time.Unix(0, ns).UTC(), Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// CaseDurations spans the first and last timestamp of every traceId,
// ascending by traceId. Rows without a traceId are ignored.
func CaseDurations(t *Table) []CaseDuration {
	spans := make(map[string]*CaseDuration)
	for _, r := range t.Rows {
		id, ok := r.Attrs.Get(event.KeyTraceID)
		if !ok {
			continue
		}
		cd, seen := spans[id]
		if !seen {
			spans[id] = &CaseDuration{TraceID: id, StartTime: r.Timestamp, EndTime: r.Timestamp}
			continue
		}
		if r.Timestamp.Before(cd.StartTime) {
			cd.StartTime = r.Timestamp
		}
		if r.Timestamp.After(cd.EndTime) {
			cd.EndTime = r.Timestamp
		}
	}

	out := make([]CaseDuration, 0, len(spans))
	for _, cd := range spans {
		cd.Duration = cd.EndTime.Sub(cd.StartTime).Seconds()
		cd.StartTime = cd.StartTime.UTC()
		cd.EndTime = cd.EndTime.UTC()
		out = append(out, *cd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TraceID < out[j].TraceID })
	return out
}

// CostsByActivity sums both cost columns per activity, in order of first
// appearance.
func CostsByActivity(t *Table) []ActivityCost {
	out := []ActivityCost{}
	index := make(map[string]int)
	for _, r := range t.Rows {
		i, ok := index[r.Activity]
		if !ok {
			i = len(out)
			index[r.Activity] = i
			out = append(out, ActivityCost{Activity: r.Activity})
		}
		out[i].TotalFixedCost += r.FixedCost
		out[i].TotalResourceCost += r.ResourceCost
	}
	for i := range out {
		out[i].TotalCost = out[i].TotalFixedCost + out[i].TotalResourceCost
	}
	return out
}
