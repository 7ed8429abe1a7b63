package record

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteReaderReadLine(t *testing.T) {
	r := NewByteReader(strings.NewReader("first\nsecond\n"))

	line, err := r.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "first\n", string(line))
	assert.Equal(t, int64(6), r.Position())

	line, err = r.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "second\n", string(line))

	_, err = r.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestByteReaderTruncatedLine(t *testing.T) {
	r := NewByteReader(strings.NewReader("no newline at all"))
	_, err := r.ReadLine()
	_, ok := err.(*TruncatedBodyError)
	assert.True(t, ok, "expected *TruncatedBodyError, got %T", err)
}

func TestByteReaderReadExact(t *testing.T) {
	r := NewByteReader(strings.NewReader("0123456789"))
	b, err := r.ReadExact(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "01234", string(b))

	_, err = r.ReadExact(10)
	_, ok := err.(*TruncatedBodyError)
	assert.True(t, ok, "expected *TruncatedBodyError, got %T", err)
}

func TestByteReaderReadExactZero(t *testing.T) {
	r := NewByteReader(strings.NewReader("abc"))
	b, err := r.ReadExact(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, 0, len(b))
}
