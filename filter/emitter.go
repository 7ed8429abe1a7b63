package filter

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/rcowham/svndumpfilter2/record"
)

// canonicalNodeHeaderOrder is the header order used for synthetic
// records; length headers always come last.
var canonicalNodeHeaderOrder = []string{
	"Node-path",
	"Node-kind",
	"Node-action",
	"Node-copyfrom-rev",
	"Node-copyfrom-path",
	"Text-copy-source-md5",
	"Text-copy-source-sha1",
	"Text-content-md5",
	"Text-content-sha1",
	"Prop-content-length",
	"Text-content-length",
	"Content-length",
}

// Emitter serializes Records to bytes with exact header ordering,
// recomputed length/hash headers, and the format's trailing blank line.
type Emitter struct {
	w       io.Writer
	written int64
}

// NewEmitter wraps w for dump-stream writing.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// BytesWritten reports the total bytes written so far.
func (e *Emitter) BytesWritten() int64 {
	return e.written
}

func (e *Emitter) write(b []byte) error {
	n, err := e.w.Write(b)
	e.written += int64(n)
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

func (e *Emitter) writeString(s string) error {
	return e.write([]byte(s))
}

// EmitFormat writes the SVN-fs-dump-format-version preamble.
func (e *Emitter) EmitFormat(version int) error {
	return e.writeString(fmt.Sprintf("SVN-fs-dump-format-version: %d\n\n", version))
}

// EmitUUID writes the UUID preamble line.
func (e *Emitter) EmitUUID(uuid string) error {
	return e.writeString(fmt.Sprintf("UUID: %s\n\n", uuid))
}

// EmitRevision writes a Revision record with recomputed length headers.
func (e *Emitter) EmitRevision(rec *record.Record) error {
	headers := rec.Headers.Clone()
	return e.emitHeadersAndBody(headers, rec.Props, nil, false)
}

// EmitNode writes a Node record, reordering headers to the canonical
// order if the record is synthetic, and always recomputing length and
// (when present) hash headers from the actual bytes about to be written.
func (e *Emitter) EmitNode(rec *record.Record) error {
	var headers record.HeaderList
	if rec.Synthetic {
		headers = reorderCanonical(rec.Headers)
	} else {
		headers = rec.Headers.Clone()
	}
	return e.emitHeadersAndBody(headers, rec.Props, rec.Text, true)
}

func (e *Emitter) emitHeadersAndBody(headers record.HeaderList, props *record.PropBlock, text []byte, isNode bool) error {
	var propsBytes []byte
	hasProps := props != nil
	if hasProps {
		propsBytes = props.Serialize()
	}
	hasText := isNode && text != nil

	if hasProps {
		headers.Set("Prop-content-length", strconv.Itoa(len(propsBytes)))
	} else {
		headers.Delete("Prop-content-length")
	}
	if isNode {
		if hasText {
			headers.Set("Text-content-length", strconv.Itoa(len(text)))
		} else {
			headers.Delete("Text-content-length")
		}
	}
	contentLen := len(propsBytes) + len(text)
	headers.Set("Content-length", strconv.Itoa(contentLen))

	if hasText {
		if _, ok := headers.Get("Text-content-md5"); ok {
			sum := md5.Sum(text)
			headers.Set("Text-content-md5", hex.EncodeToString(sum[:]))
		}
		if _, ok := headers.Get("Text-content-sha1"); ok {
			sum := sha1.Sum(text)
			headers.Set("Text-content-sha1", hex.EncodeToString(sum[:]))
		}
	} else {
		headers.Delete("Text-content-md5")
		headers.Delete("Text-content-sha1")
	}

	for _, h := range headers {
		if err := e.writeString(fmt.Sprintf("%s: %s\n", h.Key, h.Value)); err != nil {
			return err
		}
	}
	if err := e.writeString("\n"); err != nil {
		return err
	}
	if hasProps {
		if err := e.write(propsBytes); err != nil {
			return err
		}
	}
	if hasText {
		if err := e.write(text); err != nil {
			return err
		}
	}
	return e.writeString("\n")
}

// reorderCanonical returns a new HeaderList containing only the headers
// present in h, ordered per canonicalNodeHeaderOrder, with any header not
// in that list (there should be none for synthetic records) appended
// afterwards in its original relative order.
func reorderCanonical(h record.HeaderList) record.HeaderList {
	used := make(map[string]bool, len(h))
	out := make(record.HeaderList, 0, len(h))
	for _, key := range canonicalNodeHeaderOrder {
		if v, ok := h.Get(key); ok {
			out = append(out, record.Header{Key: key, Value: []byte(v)})
			used[key] = true
		}
	}
	for _, e := range h {
		if !used[e.Key] {
			out = append(out, e)
		}
	}
	return out
}
