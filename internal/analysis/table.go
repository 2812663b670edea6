package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/xesinsight/internal/event"
)

// ErrSchema is returned when the decoded events lack a required column.
var ErrSchema = errors.New("schema error")

// DefaultTimestampLayouts are tried in order for every timestamp value.
// A fractional second is accepted after the seconds field by all of them.
var DefaultTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Options tunes row derivation.
type Options struct {
	// TimestampLayouts replaces DefaultTimestampLayouts when non-empty.
	TimestampLayouts []string
}

func (o Options) layouts() []string {
	if len(o.TimestampLayouts) > 0 {
		return o.TimestampLayouts
	}
	return DefaultTimestampLayouts
}

// Row is a flattened event with its typed columns derived.
type Row struct {
	Activity     string
	Timestamp    time.Time
	FixedCost    float64
	ResourceCost float64
	Attrs        event.Attributes
}

// Table is the flattened event table: surviving rows plus the column set of
// the input, which decides whether optional aggregates are computed.
type Table struct {
	Rows            []Row
	Columns         map[string]bool
	TimestampColumn string

	DroppedTimestamp int
	DroppedActivity  int
}

// Has reports whether any input event carried column.
func (t *Table) Has(column string) bool {
	return t.Columns[column]
}

// Flatten validates the required columns and derives one Row per usable event.
// Rows with an unparsable timestamp or without concept:name are dropped.
func Flatten(events []event.Event, opts Options) (*Table, error) {
	cols := columns(events)
	if !cols[event.KeyName] {
		return nil, fmt.Errorf("%w: missing %s", ErrSchema, event.KeyName)
	}

	var tsCol string
	switch {
	case cols[event.KeyTimestamp]:
		tsCol = event.KeyTimestamp
	case cols[event.KeyPlainTime]:
		tsCol = event.KeyPlainTime
	default:
		return nil, fmt.Errorf("%w: missing timestamp field", ErrSchema)
	}

	t := &Table{
		Rows:            make([]Row, 0, len(events)),
		Columns:         cols,
		TimestampColumn: tsCol,
	}
	layouts := opts.layouts()
	for _, ev := range events {
		ts, ok := parseTimestamp(ev.Attrs[tsCol], layouts)
		if !ok {
			t.DroppedTimestamp++
			continue
		}
		activity, ok := ev.Attrs.Get(event.KeyName)
		if !ok {
			t.DroppedActivity++
			continue
		}
		t.Rows = append(t.Rows, Row{
			Activity:     activity,
			Timestamp:    ts,
			FixedCost:    coerceCost(ev.Attrs.Get(event.KeyFixedCost)),
			ResourceCost: coerceCost(ev.Attrs.Get(event.KeyResourceCost)),
			Attrs:        ev.Attrs,
		})
	}
	return t, nil
}

func columns(events []event.Event) map[string]bool {
	cols := make(map[string]bool)
	for _, ev := range events {
		for k := range ev.Attrs {
			cols[k] = true
		}
	}
	return cols
}

func parseTimestamp(raw string, layouts []string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// coerceCost turns a raw cost into a number; absent, unparsable and
// non-finite values become 0.
func coerceCost(raw string, present bool) float64 {
	if !present {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
