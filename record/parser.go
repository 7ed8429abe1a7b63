package record

import (
	"io"
	"strconv"
	"strings"
)

type parserState int

const (
	stateStart parserState = iota
	stateAfterFormat
	stateStream
	stateDone
)

// Parser produces a lazy, finite, non-restartable sequence of Records
// from a ByteReader. Callers pull records with Next until it returns
// io.EOF.
type Parser struct {
	br    *ByteReader
	state parserState
}

// NewParser constructs a Parser reading from r.
func NewParser(r *ByteReader) *Parser {
	return &Parser{br: r, state: stateStart}
}

// Position reports the underlying byte offset, for error context.
func (p *Parser) Position() int64 {
	return p.br.Position()
}

// Next returns the next Record, or io.EOF once the stream is exhausted.
func (p *Parser) Next() (*Record, error) {
	if p.state == stateDone {
		return nil, io.EOF
	}

	headers, err := p.readHeaderBlock()
	if err != nil {
		if err == io.EOF {
			p.state = stateDone
			return nil, io.EOF
		}
		return nil, err
	}

	switch p.state {
	case stateStart:
		if headers[0].Key != "SVN-fs-dump-format-version" {
			return nil, &MalformedHeaderError{Line: headers[0].Key, Pos: p.br.Position()}
		}
		version, err := strconv.Atoi(strings.TrimSpace(string(headers[0].Value)))
		if err != nil {
			return nil, &MalformedHeaderError{Line: "SVN-fs-dump-format-version: " + string(headers[0].Value), Pos: p.br.Position()}
		}
		if version < 2 || version > 3 {
			return nil, &UnsupportedFormatVersionError{Version: version}
		}
		p.state = stateAfterFormat
		return &Record{Kind: KindFormat, FormatVersion: version}, nil

	case stateAfterFormat:
		p.state = stateStream
		if len(headers) == 1 && headers[0].Key == "UUID" {
			return &Record{Kind: KindUUID, UUID: strings.TrimSpace(string(headers[0].Value))}, nil
		}
		return p.finishRecord(headers)

	default: // stateStream
		return p.finishRecord(headers)
	}
}

// finishRecord classifies a parsed header block as Revision or Node, reads
// its optional property/text bodies, and consumes the trailing blank line.
func (p *Parser) finishRecord(headers HeaderList) (*Record, error) {
	rec := &Record{Headers: headers}
	switch {
	case headers.Has("Revision-number"):
		rec.Kind = KindRevision
	case headers.Has("Node-path"):
		rec.Kind = KindNode
	default:
		return nil, &UnexpectedRecordError{Detail: "header block has neither Revision-number nor Node-path", Pos: p.br.Position()}
	}

	if v, ok := headers.Get("Prop-content-length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, &MalformedHeaderError{Line: "Prop-content-length: " + v, Pos: p.br.Position()}
		}
		raw, err := p.br.ReadExact(n)
		if err != nil {
			return nil, err
		}
		props, err := ParsePropBlock(raw)
		if err != nil {
			return nil, err
		}
		rec.Props = props
	}

	if rec.Kind == KindNode {
		if v, ok := headers.Get("Text-content-length"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, &MalformedHeaderError{Line: "Text-content-length: " + v, Pos: p.br.Position()}
			}
			text, err := p.br.ReadExact(n)
			if err != nil {
				return nil, err
			}
			rec.Text = text
		}
	}

	if err := p.consumeTrailingBlank(); err != nil {
		return nil, err
	}
	return rec, nil
}

// consumeTrailingBlank reads the single mandatory blank line after a
// record's body. A clean EOF in its place is tolerated for the final
// record in a stream that lacks a trailing newline.
func (p *Parser) consumeTrailingBlank() error {
	line, err := p.br.ReadLine()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		if _, ok := err.(*TruncatedBodyError); ok {
			return nil
		}
		return err
	}
	if trimLine(line) != "" {
		return &MalformedHeaderError{Line: string(line), Pos: p.br.Position()}
	}
	return nil
}

// readHeaderBlock skips leading blank lines, then reads "Key: Value"
// lines until (and consuming) the blank line that terminates the block.
func (p *Parser) readHeaderBlock() (HeaderList, error) {
	var first []byte
	for {
		line, err := p.br.ReadLine()
		if err != nil {
			return nil, err
		}
		if trimLine(line) != "" {
			first = line
			break
		}
	}

	var headers HeaderList
	line := first
	for {
		if trimLine(line) == "" {
			break
		}
		key, value, err := splitHeaderLine(line)
		if err != nil {
			return nil, &MalformedHeaderError{Line: string(line), Pos: p.br.Position()}
		}
		headers = append(headers, Header{Key: key, Value: value})

		next, err := p.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				return headers, nil
			}
			return nil, err
		}
		line = next
	}
	return headers, nil
}

func trimLine(line []byte) string {
	s := string(line)
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s
}

func splitHeaderLine(line []byte) (string, []byte, error) {
	s := trimLine(line)
	idx := strings.Index(s, ": ")
	if idx < 0 {
		return "", nil, &ParseError{Msg: "missing ': ' separator"}
	}
	return s[:idx], []byte(s[idx+2:]), nil
}
