// Package record implements the dump-stream data model: the Byte Reader,
// the lazy Record Parser, and the ordered header/property types that the
// rest of the engine rewrites in place.
package record

import "bytes"

// Kind identifies which of the four dump record variants a Record holds.
type Kind int

const (
	KindFormat Kind = iota
	KindUUID
	KindRevision
	KindNode
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "Format"
	case KindUUID:
		return "UUID"
	case KindRevision:
		return "Revision"
	case KindNode:
		return "Node"
	default:
		return "Unknown"
	}
}

// Header is one "Key: Value" line, keeping the raw value bytes since only
// header names are guaranteed ASCII.
type Header struct {
	Key   string
	Value []byte
}

// HeaderList is an ordered key/value list. Order is significant: the
// Emitter re-emits headers in the order the Parser saw them unless the
// Record is synthetic, in which case filter.canonicalNodeHeaderOrder applies.
type HeaderList []Header

// Get returns the value of the first header with the given key.
func (h HeaderList) Get(key string) (string, bool) {
	for _, e := range h {
		if e.Key == key {
			return string(e.Value), true
		}
	}
	return "", false
}

// Set updates the first header with key, or appends a new one if absent.
func (h *HeaderList) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: []byte(value)})
}

// Delete removes all headers with the given key.
func (h *HeaderList) Delete(key string) {
	out := (*h)[:0]
	for _, e := range *h {
		if e.Key != key {
			out = append(out, e)
		}
	}
	*h = out
}

// Has reports whether a header with key is present.
func (h HeaderList) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Clone returns an independent copy safe to mutate.
func (h HeaderList) Clone() HeaderList {
	out := make(HeaderList, len(h))
	for i, e := range h {
		v := make([]byte, len(e.Value))
		copy(v, e.Value)
		out[i] = Header{Key: e.Key, Value: v}
	}
	return out
}

// Record is one unit of the dump stream: a Format or UUID preamble line,
// or a Revision/Node record with its header block, optional property
// block and optional text block.
type Record struct {
	Kind Kind

	// Format
	FormatVersion int

	// UUID
	UUID string

	// Revision, Node
	Headers HeaderList
	Props   *PropBlock // nil if no Prop-content-length header was present
	Text    []byte     // nil if no Text-content-length header was present

	// Synthetic is true for records manufactured by the Synthesizer or
	// Untangler rather than parsed from the input. The Emitter uses the
	// canonical header order for these instead of Headers' parse order.
	Synthetic bool

	// InputLine is a 1-based input record index; the Parser leaves it
	// zero and no error message reads it. It is not part of the dump
	// format.
	InputLine int
}

// Path returns the Node-path header value, or "" if absent.
func (r *Record) Path() string {
	v, _ := r.Headers.Get("Node-path")
	return v
}

// NodeKind returns the Node-kind header value ("file" or "dir").
func (r *Record) NodeKind() string {
	v, _ := r.Headers.Get("Node-kind")
	return v
}

// NodeAction returns the Node-action header value.
func (r *Record) NodeAction() string {
	v, _ := r.Headers.Get("Node-action")
	return v
}

// CopyfromPath returns the Node-copyfrom-path header value, if any.
func (r *Record) CopyfromPath() (string, bool) {
	return r.Headers.Get("Node-copyfrom-path")
}

// CopyfromRev returns the Node-copyfrom-rev header value as an int.
func (r *Record) CopyfromRev() (int, bool) {
	v, ok := r.Headers.Get("Node-copyfrom-rev")
	if !ok {
		return 0, false
	}
	n, err := atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RevisionNumber returns the Revision-number header value as an int.
func (r *Record) RevisionNumber() (int, bool) {
	v, ok := r.Headers.Get("Revision-number")
	if !ok {
		return 0, false
	}
	n, err := atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func atoi(s string) (int, error) {
	n := 0
	neg := false
	if len(s) == 0 {
		return 0, &ParseError{Msg: "empty integer"}
	}
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, &ParseError{Msg: "invalid integer: " + s}
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// HasMarker reports whether the record's property block carries the
// synthetic-record marker property.
func (r *Record) HasMarker() bool {
	if r.Props == nil {
		return false
	}
	v, ok := r.Props.Get(MarkerKey)
	return ok && bytes.Equal(v, []byte(MarkerValue))
}
