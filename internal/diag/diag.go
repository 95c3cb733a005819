// Package diag collects non-fatal anomalies raised while loading and
// aggregating matches.
package diag

import (
	"fmt"
	"strings"
)

// Kind groups diagnostics by how the run recovered from them.
type Kind int

const (
	// MissingFile: a match's packet could not be located; the match is skipped.
	MissingFile Kind = iota + 1
	// MalformedInput: a file failed to decode; the file is skipped.
	MalformedInput
	// CrossReference: a match question is absent from its packet; the question is skipped.
	CrossReference
	// DataIntegrity: a buzz or record is inconsistent; a fallback is applied.
	DataIntegrity
	// Taxonomy: category configuration conflicts (roll-up collisions, near-duplicate labels).
	Taxonomy
)

func (k Kind) String() string {
	switch k {
	case MissingFile:
		return "missing-file"
	case MalformedInput:
		return "malformed-input"
	case CrossReference:
		return "cross-reference"
	case DataIntegrity:
		return "data-integrity"
	case Taxonomy:
		return "taxonomy"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to zero.
func ParseKind(s string) Kind {
	for k := MissingFile; k <= Taxonomy; k++ {
		if k.String() == s {
			return k
		}
	}
	return 0
}

// Stable diagnostic codes.
const (
	CodeMissingPacket          = "missing-packet"
	CodeDecodeFailed           = "decode-failed"
	CodeQuestionOutOfRange     = "question-out-of-range"
	CodeUnknownPlayer          = "unknown-player"
	CodeMultipleCorrect        = "multiple-correct-buzzes"
	CodeUnrecognizedPointValue = "unrecognized-point-value"
	CodeBuzzBeyondText         = "buzz-beyond-text"
	CodeRollupCollision        = "rollup-collision"
	CodeNearDuplicateCategory  = "near-duplicate-category"
)

// Field is a key/value detail attached to a diagnostic.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Diagnostic is one recorded anomaly.
type Diagnostic struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []Field
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Code, d.Message)
	for _, f := range d.Fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

// Collector accumulates diagnostics in the order they were raised.
// A nil *Collector discards everything.
type Collector struct {
	items []Diagnostic
	sink  func(Diagnostic)
}

// NewCollector returns an empty collector. sink, if non-nil, is called for
// every diagnostic as it is recorded.
func NewCollector(sink func(Diagnostic)) *Collector {
	return &Collector{sink: sink}
}

// Add records a diagnostic.
func (c *Collector) Add(kind Kind, code, msg string, fields ...Field) {
	if c == nil {
		return
	}
	d := Diagnostic{Kind: kind, Code: code, Message: msg, Fields: fields}
	c.items = append(c.items, d)
	if c.sink != nil {
		c.sink(d)
	}
}

// Append records already-built diagnostics, e.g. from a partial run.
func (c *Collector) Append(ds ...Diagnostic) {
	if c == nil {
		return
	}
	for _, d := range ds {
		c.items = append(c.items, d)
		if c.sink != nil {
			c.sink(d)
		}
	}
}

// All returns a copy of the recorded diagnostics.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of recorded diagnostics.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// ByCode returns the diagnostics with the given code.
func (c *Collector) ByCode(code string) []Diagnostic {
	if c == nil {
		return nil
	}
	var out []Diagnostic
	for _, d := range c.items {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Counts tallies diagnostics per code.
func (c *Collector) Counts() map[string]int {
	out := make(map[string]int)
	if c == nil {
		return out
	}
	for _, d := range c.items {
		out[d.Code]++
	}
	return out
}
