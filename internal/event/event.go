package event

// Well-known XES attribute keys.
const (
	KeyName         = "concept:name"
	KeyTimestamp    = "time:timestamp"
	KeyLifecycle    = "lifecycle:transition"
	KeyCaseName     = "case_name"
	KeyPlainTime    = "timestamp"
	KeyTraceID      = "traceId"
	KeyNodeType     = "nodeType"
	KeyFixedCost    = "fixedCost"
	KeyResourceCost = "resourceCost"
)

// Attributes is a flat key → raw value mapping decoded from XES typed
// attribute containers. Values are never typed at decode time.
type Attributes map[string]string

// Get returns the value for key and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Event is one recorded step of a trace.
type Event struct {
	Attrs Attributes `json:"attributes"`
}

// CaseName returns the concept:name of the trace the event was decoded from.
func (e Event) CaseName() string {
	return e.Attrs[KeyCaseName]
}

// Trace is one case: its own attributes plus its ordered events.
type Trace struct {
	Attrs  Attributes `json:"attributes"`
	Events []Event    `json:"events"`
}

// Name returns the case identifier (concept:name).
func (t Trace) Name() string {
	return t.Attrs[KeyName]
}

// Log is a fully decoded XES document.
type Log struct {
	Attrs  Attributes `json:"attributes"`
	Traces []Trace    `json:"traces"`
	Events []Event    `json:"events"` // every trace's events, in trace then in-trace order

	SkippedTraces int `json:"skipped_traces"`
}
