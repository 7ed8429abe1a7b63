package record

import (
	"bytes"
	"fmt"
	"strconv"
)

// MarkerKey and MarkerValue are the svndumpfilter-generated marker
// property set on every synthetic or rewritten record.
const (
	MarkerKey   = "svndumpfilter generated"
	MarkerValue = "True"
)

// MergeinfoKey is the property stripped when -x is requested.
const MergeinfoKey = "svn:mergeinfo"

// MimeTypeKey is the property the Untangler sets from content sniffing
// when inlining a node whose properties (its own or the retrieved ones)
// carry no mime type.
const MimeTypeKey = "svn:mime-type"

// PropEntry is one property-block entry: either a value (K/V pair) or a
// tombstone (D, deleting a property during a "change" node).
type PropEntry struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// PropBlock is an ordered sequence of property entries. Order is
// significant for byte-exact output.
type PropBlock struct {
	Entries []PropEntry
}

// NewPropBlock returns an empty property block.
func NewPropBlock() *PropBlock {
	return &PropBlock{}
}

// Get returns the value of the first non-deleted entry with key.
func (p *PropBlock) Get(key string) ([]byte, bool) {
	for _, e := range p.Entries {
		if !e.Deleted && string(e.Key) == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set upserts a value entry, preserving the position of an existing entry
// with the same key and clearing any Deleted flag on it.
func (p *PropBlock) Set(key string, value []byte) {
	for i := range p.Entries {
		if string(p.Entries[i].Key) == key {
			p.Entries[i] = PropEntry{Key: []byte(key), Value: value}
			return
		}
	}
	p.Entries = append(p.Entries, PropEntry{Key: []byte(key), Value: value})
}

// Delete removes any entry (value or tombstone) with key.
func (p *PropBlock) Delete(key string) bool {
	out := p.Entries[:0]
	removed := false
	for _, e := range p.Entries {
		if string(e.Key) == key {
			removed = true
			continue
		}
		out = append(out, e)
	}
	p.Entries = out
	return removed
}

// Clone returns an independent deep copy.
func (p *PropBlock) Clone() *PropBlock {
	if p == nil {
		return nil
	}
	out := &PropBlock{Entries: make([]PropEntry, len(p.Entries))}
	for i, e := range p.Entries {
		k := make([]byte, len(e.Key))
		copy(k, e.Key)
		var v []byte
		if e.Value != nil {
			v = make([]byte, len(e.Value))
			copy(v, e.Value)
		}
		out.Entries[i] = PropEntry{Key: k, Value: v, Deleted: e.Deleted}
	}
	return out
}

// Merge overlays other's entries onto p; entries already present in p win
// on key collision (used by the Untangler: "node's own explicit property
// deltas win over retrieved properties").
func (p *PropBlock) Merge(other *PropBlock) {
	if other == nil {
		return
	}
	for _, e := range other.Entries {
		if e.Deleted {
			continue
		}
		if _, ok := p.Get(string(e.Key)); ok {
			continue
		}
		p.Entries = append(p.Entries, PropEntry{Key: append([]byte(nil), e.Key...), Value: append([]byte(nil), e.Value...)})
	}
}

// Serialize renders the block in the K/V/D + PROPS-END wire format.
func (p *PropBlock) Serialize() []byte {
	var buf bytes.Buffer
	for _, e := range p.Entries {
		if e.Deleted {
			fmt.Fprintf(&buf, "D %d\n", len(e.Key))
			buf.Write(e.Key)
			buf.WriteByte('\n')
			continue
		}
		fmt.Fprintf(&buf, "K %d\n", len(e.Key))
		buf.Write(e.Key)
		buf.WriteByte('\n')
		fmt.Fprintf(&buf, "V %d\n", len(e.Value))
		buf.Write(e.Value)
		buf.WriteByte('\n')
	}
	buf.WriteString("PROPS-END\n")
	return buf.Bytes()
}

// SerializedLength is the byte length of Serialize(), the value the
// Emitter must write as Prop-content-length.
func (p *PropBlock) SerializedLength() int {
	return len(p.Serialize())
}

// ParsePropBlock parses the K/V/D + PROPS-END property-block grammar.
func ParsePropBlock(data []byte) (*PropBlock, error) {
	p := &PropBlock{}
	i := 0
	for {
		lineEnd := bytes.IndexByte(data[i:], '\n')
		if lineEnd < 0 {
			return nil, &ParseError{Msg: "property block missing terminator line"}
		}
		line := data[i : i+lineEnd]
		i += lineEnd + 1
		if string(line) == "PROPS-END" {
			return p, nil
		}
		if len(line) < 2 {
			return nil, &ParseError{Msg: fmt.Sprintf("malformed property entry line %q", line)}
		}
		tag := line[0]
		switch tag {
		case 'K', 'V', 'D':
			n, err := strconv.Atoi(string(bytes.TrimSpace(line[2:])))
			if err != nil {
				return nil, &ParseError{Msg: fmt.Sprintf("malformed property length %q", line)}
			}
			if i+n > len(data) {
				return nil, &TruncatedBodyError{Want: n, Got: len(data) - i}
			}
			value := data[i : i+n]
			i += n
			if i >= len(data) || data[i] != '\n' {
				return nil, &ParseError{Msg: "property entry missing trailing newline"}
			}
			i++
			switch tag {
			case 'K':
				key := append([]byte(nil), value...)
				// The following V entry is parsed on the next loop
				// iteration; stash the key via a zero-value entry we
				// then fill in.
				p.Entries = append(p.Entries, PropEntry{Key: key})
			case 'V':
				if len(p.Entries) == 0 || p.Entries[len(p.Entries)-1].Value != nil || p.Entries[len(p.Entries)-1].Deleted {
					return nil, &ParseError{Msg: "V entry without preceding K entry"}
				}
				p.Entries[len(p.Entries)-1].Value = append([]byte(nil), value...)
			case 'D':
				p.Entries = append(p.Entries, PropEntry{Key: append([]byte(nil), value...), Deleted: true})
			}
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("unknown property entry tag %q", line)}
		}
	}
}
