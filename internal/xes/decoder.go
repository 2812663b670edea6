package xes

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gyaneshwarpardhi/xesinsight/internal/event"
)

var (
	// ErrMalformedLog is returned when the input is not well-formed XML or
	// lacks the log/trace skeleton.
	ErrMalformedLog = errors.New("malformed XES log")
	// ErrInvalidTrace is returned when a trace has no concept:name.
	ErrInvalidTrace = errors.New("invalid trace")
)

// TracePolicy decides what happens to a trace without a case identifier.
type TracePolicy string

const (
	PolicyFail TracePolicy = "fail"
	PolicySkip TracePolicy = "skip"
)

// Options tunes a decode pass. The zero value fails on invalid traces.
type Options struct {
	TracePolicy TracePolicy
}

// Decode parses a fully buffered XES document.
// Traces and events keep document order; Log.Events is the concatenation of
// every kept trace's events.
func Decode(data []byte, opts Options) (*event.Log, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}

	out := &event.Log{
		Attrs:  doc.attributes(),
		Traces: make([]event.Trace, 0, len(doc.Traces)),
	}
	for i := range doc.Traces {
		tr, ok, err := buildTrace(&doc.Traces[i], i, opts.TracePolicy)
		if err != nil {
			return nil, err
		}
		if !ok {
			out.SkippedTraces++
			continue
		}
		out.Traces = append(out.Traces, tr)
		out.Events = append(out.Events, tr.Events...)
	}
	if out.Events == nil {
		out.Events = []event.Event{}
	}
	return out, nil
}

// DecodeReader buffers r completely and decodes it.
func DecodeReader(r io.Reader, opts Options) (*event.Log, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return Decode(data, opts)
}

func parse(data []byte) (*xmlLog, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = passthroughCharset
	var doc xmlLog
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedLog)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	if len(doc.Traces) == 0 {
		return nil, fmt.Errorf("%w: no trace elements under log", ErrMalformedLog)
	}
	return &doc, nil
}

// passthroughCharset ignores the encoding declared in the XML prolog; the
// caller hands over text that is already UTF-8.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// expectEOF rejects a second root element or stray text after </log>.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedLog, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("%w: unexpected element <%s> after log", ErrMalformedLog, t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("%w: unexpected text after log", ErrMalformedLog)
			}
		}
	}
}

func buildTrace(xt *xmlTrace, idx int, policy TracePolicy) (event.Trace, bool, error) {
	attrs := xt.attributes()
	caseName, ok := attrs.Get(event.KeyName)
	if !ok {
		if policy == PolicySkip {
			return event.Trace{}, false, nil
		}
		return event.Trace{}, false, fmt.Errorf("%w: trace #%d has no %s", ErrInvalidTrace, idx, event.KeyName)
	}

	events := make([]event.Event, 0, len(xt.Events))
	for j := range xt.Events {
		ev := xt.Events[j].attributes()
		ev[event.KeyCaseName] = caseName
		events = append(events, event.Event{Attrs: ev})
	}
	return event.Trace{Attrs: attrs, Events: events}, true, nil
}
