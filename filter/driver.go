package filter

import (
	"errors"
	"io"
	"strconv"

	"github.com/rcowham/svndumpfilter2/dirtree"
	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/probe"
	"github.com/rcowham/svndumpfilter2/record"
)

// Driver orchestrates one filter pass: it pulls Records from a Parser,
// applies the Path Matcher, Untangler, Dependent-Directory Synthesizer
// and Property Block Rewriter, and feeds the survivors to an Emitter
// under the configured renumbering policy. One Driver processes exactly
// one input stream to exactly one output stream and is not reusable.
type Driver struct {
	Parser    *record.Parser
	Matcher   *pathmatch.Matcher
	Probe     probe.Probe
	Untangler *Untangler
	Renumber  *RenumberMap
	Props     *PropertyRewriter
	Tree      *dirtree.Tree

	// StartRevision, if greater than zero, causes every input revision
	// numbered below it to be parsed and run through the Matcher,
	// Untangler and Synthesizer to populate the Renumber Map and the
	// directory tree exactly as a full pass would, but discarded rather
	// than buffered for emission: the caller is appending to an output
	// that already contains that prefix.
	StartRevision int
}

// Run consumes the Driver's Parser to exhaustion, writing the filtered,
// renumbered, untangled stream to w.
func (d *Driver) Run(w io.Writer) error {
	emitter := NewEmitter(w)

	rec, err := d.Parser.Next()
	if err != nil {
		return err
	}
	if rec.Kind != record.KindFormat {
		return &record.UnexpectedRecordError{Detail: "expected format header first"}
	}
	if err := emitter.EmitFormat(rec.FormatVersion); err != nil {
		return err
	}

	rec, err = d.Parser.Next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Kind == record.KindUUID {
		if err := emitter.EmitUUID(rec.UUID); err != nil {
			return err
		}
		rec, err = d.Parser.Next()
	}

	for {
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.Kind != record.KindRevision {
			return &record.UnexpectedRecordError{Detail: "expected revision record"}
		}
		revRec := rec
		inputRev, _ := revRec.RevisionNumber()
		emit := inputRev >= d.StartRevision

		var buffered []*record.Record
		hadContent := inputRev == 0

		for {
			rec, err = d.Parser.Next()
			if err == io.EOF {
				rec = nil
				break
			}
			if err != nil {
				return err
			}
			if rec.Kind == record.KindRevision {
				break
			}
			nodes, err := d.processNode(rec, inputRev)
			if err != nil {
				return err
			}
			if len(nodes) > 0 {
				hadContent = true
				if emit {
					buffered = append(buffered, nodes...)
				}
			}
		}

		kept := emit && d.Renumber.Kept(hadContent)
		d.Renumber.CloseRevision(inputRev, hadContent)

		if kept {
			outRev, _ := d.Renumber.TranslateCopyfrom(inputRev)
			headers := revRec.Headers.Clone()
			headers.Set("Revision-number", strconv.Itoa(outRev))
			out := &record.Record{Kind: record.KindRevision, Headers: headers, Props: revRec.Props}
			if err := emitter.EmitRevision(out); err != nil {
				return err
			}
			for _, n := range buffered {
				if err := emitter.EmitNode(n); err != nil {
					return err
				}
			}
		}

		if rec == nil {
			return nil
		}
	}
}

// processNode applies the Path Matcher, Untangler, copyfrom renumbering
// and Dependent-Directory Synthesizer to one parsed node record,
// returning the sequence of records (possibly empty) to buffer for the
// current revision.
func (d *Driver) processNode(rec *record.Record, inputRev int) ([]*record.Record, error) {
	path := rec.Path()
	if !d.Matcher.IsIncluded(path) {
		return nil, nil
	}

	if _, hasCopy := rec.CopyfromPath(); hasCopy && d.Untangler != nil && d.Untangler.Needed(rec, d.Renumber) {
		srcRev, _ := rec.CopyfromRev()
		nodes, err := d.Untangler.Untangle(rec, srcRev)
		if err != nil {
			var missing *MissingUntangleSourceError
			if errors.As(err, &missing) {
				missing.TriggeringRev = inputRev
			}
			return nil, err
		}
		out := synthesizeAncestors(d.Tree, path, d.Props)
		d.markAncestors(out)
		for _, n := range nodes {
			d.Tree.Mark(n.Path(), n.NodeKind() == "dir")
		}
		return append(out, nodes...), nil
	}

	if copyfromRev, ok := rec.CopyfromRev(); ok {
		outRev, ok2 := d.Renumber.TranslateCopyfrom(copyfromRev)
		if !ok2 {
			return nil, &InvalidCopyfromRevError{InputRev: copyfromRev, Path: path}
		}
		rec.Headers = rec.Headers.Clone()
		rec.Headers.Set("Node-copyfrom-rev", strconv.Itoa(outRev))
	}

	d.Props.Strip(rec.Props)

	out := synthesizeAncestors(d.Tree, path, d.Props)
	d.markAncestors(out)

	if rec.NodeAction() == "delete" {
		d.Tree.Forget(path)
	} else {
		d.Tree.Mark(path, rec.NodeKind() == "dir")
	}

	return append(out, rec), nil
}

func (d *Driver) markAncestors(ancestors []*record.Record) {
	for _, a := range ancestors {
		d.Tree.Mark(a.Path(), true)
	}
}
