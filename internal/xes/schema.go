package xes

import (
	"encoding/xml"

	"github.com/gyaneshwarpardhi/xesinsight/internal/event"
)

// pair is a single typed attribute, e.g. <string key="org:resource" value="Pete"/>.
type pair struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// attrSet holds the six typed attribute containers XES allows directly under
// log, trace and event elements. Sibling elements always land in a slice, so
// one attribute and many attributes decode to the same shape.
type attrSet struct {
	Strings  []pair `xml:"string"`
	Ints     []pair `xml:"int"`
	Dates    []pair `xml:"date"`
	Floats   []pair `xml:"float"`
	Booleans []pair `xml:"boolean"`
	IDs      []pair `xml:"id"`
}

// attributes flattens the containers in kind order; on key collisions the
// later entry wins. Entries without a key are dropped.
func (s *attrSet) attributes() event.Attributes {
	attrs := make(event.Attributes)
	for _, kind := range [...][]pair{s.Strings, s.Ints, s.Dates, s.Floats, s.Booleans, s.IDs} {
		for _, p := range kind {
			if p.Key == "" {
				continue
			}
			attrs[p.Key] = p.Value
		}
	}
	return attrs
}

type xmlEvent struct {
	attrSet
}

type xmlTrace struct {
	attrSet
	Events []xmlEvent `xml:"event"`
}

type xmlLog struct {
	XMLName xml.Name `xml:"log"`
	attrSet
	Traces []xmlTrace `xml:"trace"`
}
