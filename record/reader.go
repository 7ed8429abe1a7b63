package record

import (
	"bufio"
	"io"
)

// ByteReader is a buffered reader over the dump stream: it reads LF
// terminated lines, reads exact-length binary blobs, and tracks the byte
// offset for error messages. No decoding happens here — the dump stream
// mixes ASCII headers with arbitrary property/text bytes.
type ByteReader struct {
	r   *bufio.Reader
	pos int64
}

// NewByteReader wraps r for dump-stream reading.
func NewByteReader(r io.Reader) *ByteReader {
	return &ByteReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Position returns the number of bytes consumed so far.
func (b *ByteReader) Position() int64 {
	return b.pos
}

// ReadLine reads up to and including the next LF. It returns io.EOF if no
// bytes could be read at all, or a *TruncatedBodyError if bytes were read
// but the stream ended before a terminating LF was found.
func (b *ByteReader) ReadLine() ([]byte, error) {
	line, err := b.r.ReadBytes('\n')
	b.pos += int64(len(line))
	if err != nil {
		if err == io.EOF {
			if len(line) == 0 {
				return nil, io.EOF
			}
			return nil, &TruncatedBodyError{Want: len(line) + 1, Got: len(line), Pos: b.pos}
		}
		return nil, err
	}
	return line, nil
}

// ReadExact reads exactly n bytes, or fails with *TruncatedBodyError.
func (b *ByteReader) ReadExact(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(b.r, buf)
	b.pos += int64(got)
	if err != nil {
		return nil, &TruncatedBodyError{Want: n, Got: got, Pos: b.pos}
	}
	return buf, nil
}

