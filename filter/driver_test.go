package filter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcowham/svndumpfilter2/dirtree"
	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/probe"
	"github.com/rcowham/svndumpfilter2/record"
)

// buildDump serializes records (in order) into a valid dump stream using
// the Emitter itself, so fixtures never hand-count header lengths.
func buildDump(records ...*record.Record) string {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	e.EmitFormat(2)
	for _, r := range records {
		if r.Kind == record.KindRevision {
			e.EmitRevision(r)
		} else {
			e.EmitNode(r)
		}
	}
	return buf.String()
}

func revision(n int) *record.Record {
	h := record.HeaderList{}
	h.Set("Revision-number", itoa(n))
	return &record.Record{Kind: record.KindRevision, Headers: h}
}

func addDir(path string) *record.Record {
	h := record.HeaderList{}
	h.Set("Node-path", path)
	h.Set("Node-kind", "dir")
	h.Set("Node-action", "add")
	return &record.Record{Kind: record.KindNode, Headers: h}
}

func addFile(path, text string) *record.Record {
	h := record.HeaderList{}
	h.Set("Node-path", path)
	h.Set("Node-kind", "file")
	h.Set("Node-action", "add")
	return &record.Record{Kind: record.KindNode, Headers: h, Text: []byte(text)}
}

func copyNode(path, kind, srcPath string, srcRev int) *record.Record {
	h := record.HeaderList{}
	h.Set("Node-path", path)
	h.Set("Node-kind", kind)
	h.Set("Node-action", "add")
	h.Set("Node-copyfrom-path", srcPath)
	h.Set("Node-copyfrom-rev", itoa(srcRev))
	return &record.Record{Kind: record.KindNode, Headers: h}
}

func newDriver(dump string, matcher *pathmatch.Matcher, p probe.Probe, preserveEmpty, stopRenumbering bool) *Driver {
	parser := record.NewParser(record.NewByteReader(strings.NewReader(dump)))
	renumber := NewRenumberMap(preserveEmpty, stopRenumbering)
	props := &PropertyRewriter{}
	tree := &dirtree.Tree{}
	var u *Untangler
	if p != nil {
		u = &Untangler{Probe: p, Matcher: matcher, Props: props}
	}
	return &Driver{
		Parser:    parser,
		Matcher:   matcher,
		Probe:     p,
		Untangler: u,
		Renumber:  renumber,
		Props:     props,
		Tree:      tree,
	}
}

func revisionNumbers(t *testing.T, out string) []int {
	parser := record.NewParser(record.NewByteReader(strings.NewReader(out)))
	var nums []int
	for {
		rec, err := parser.Next()
		if err != nil {
			break
		}
		if rec.Kind == record.KindRevision {
			n, ok := rec.RevisionNumber()
			if !ok {
				t.Fatalf("revision record without Revision-number")
			}
			nums = append(nums, n)
		}
	}
	return nums
}

func TestDriverDropsEmptyRevisionsByDefault(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1), // empty: no included nodes
		revision(2),
		addFile("trunk/a.txt", "hi"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, []int{0, 1}, revisionNumbers(t, out.String()), "revision 1 is dropped and revision 2 becomes output revision 1")
}

func TestDriverPreservesEmptyRevisions(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		revision(2),
		addFile("trunk/a.txt", "hi"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, true, false)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, []int{0, 1, 2}, revisionNumbers(t, out.String()))
}

func TestDriverStopRenumberingKeepsInputNumbers(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(5),
		revision(9),
		addFile("trunk/a.txt", "hi"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, true)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, []int{0, 5, 9}, revisionNumbers(t, out.String()), "stop-renumbering never drops, numbers pass through verbatim")
}

func TestDriverSynthesizesMissingAncestors(t *testing.T) {
	dump := buildDump(
		revision(0),
		revision(1),
		addFile("trunk/deep/nested/file.txt", "x"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parser := record.NewParser(record.NewByteReader(strings.NewReader(out.String())))
	var paths []string
	for {
		rec, err := parser.Next()
		if err != nil {
			break
		}
		if rec.Kind == record.KindNode {
			paths = append(paths, rec.Path())
		}
	}
	assert.Equal(t, []string{"trunk", "trunk/deep", "trunk/deep/nested", "trunk/deep/nested/file.txt"}, paths)
}

func TestDriverUntanglesCopyFromExcludedSource(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		copyNode("trunk/lib", "dir", "vendor/lib", 0),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	fx := probe.NewFixture()
	fx.Put(0, "vendor/lib", &probe.Entry{Kind: probe.KindDir})
	fx.Put(0, "vendor/lib/a.c", &probe.Entry{Kind: probe.KindFile, Content: []byte("a")})

	d := newDriver(dump, matcher, fx, false, false)
	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parser := record.NewParser(record.NewByteReader(strings.NewReader(out.String())))
	var nodes []*record.Record
	for {
		rec, err := parser.Next()
		if err != nil {
			break
		}
		if rec.Kind == record.KindNode {
			nodes = append(nodes, rec)
		}
	}
	assert.Len(t, nodes, 3, "trunk from revision 0, then trunk/lib add-dir plus untangled a.c")
	for _, n := range nodes {
		_, hasCopy := n.CopyfromPath()
		assert.False(t, hasCopy, "untangled output carries no copyfrom header")
	}
}

func TestDriverRevisionZeroAlwaysKept(t *testing.T) {
	dump := buildDump(revision(0))
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, []int{0}, revisionNumbers(t, out.String()))
}

func TestDriverStartRevisionSkipsPrefix(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		addFile("trunk/old.txt", "x"),
		revision(2),
		addFile("trunk/new.txt", "y"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)
	d.StartRevision = 2

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Revisions below StartRevision still run through the Matcher and
	// Synthesizer to populate the Renumber Map and directory tree exactly
	// as a full pass would, so revision 2 keeps its natural output number
	// and its node needs no re-synthesized "trunk" ancestor.
	assert.Equal(t, []int{2}, revisionNumbers(t, out.String()), "revisions before StartRevision are parsed but never emitted")

	parser := record.NewParser(record.NewByteReader(strings.NewReader(out.String())))
	var paths []string
	for {
		rec, err := parser.Next()
		if err != nil {
			break
		}
		if rec.Kind == record.KindNode {
			paths = append(paths, rec.Path())
		}
	}
	assert.Equal(t, []string{"trunk/new.txt"}, paths, "trunk was already marked present by the skipped prefix")
}

func TestDriverStartRevisionPreservesRenumberingContinuity(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		addFile("trunk/mid.txt", "m"), // included, below StartRevision
		revision(2),
		addFile("trunk/new.txt", "y"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)
	d.StartRevision = 2

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Revision 1 had included content, so it consumes an output revision
	// number in the Renumber Map even though it is never emitted: the
	// surviving revision 2 keeps the number it would have gotten from an
	// unsplit pass over the whole stream.
	assert.Equal(t, []int{2}, revisionNumbers(t, out.String()))
}

func TestDriverIdentityOverSupersetInclude(t *testing.T) {
	records := []*record.Record{
		revision(0),
		addDir("trunk"),
		revision(1),
		addFile("trunk/a.txt", "hi"),
		revision(2),
		copyNode("trunk/b.txt", "file", "trunk/a.txt", 1),
	}
	dump := buildDump(records...)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, true, true)

	var out bytes.Buffer
	if err := d.Run(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With -k (preserve-empty) and -s (stop-renumbering) both set, and an
	// include set covering every path in the dump, nothing is dropped,
	// renumbered, untangled or stripped: the output is byte-for-byte the
	// same stream the fixture itself would serialize.
	assert.Equal(t, dump, out.String())
}

func TestDriverInvalidCopyfromRevError(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		copyNode("trunk/copy", "dir", "trunk", 99), // revision 99 never appeared in the stream
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	d := newDriver(dump, matcher, nil, false, false)

	var out bytes.Buffer
	err := d.Run(&out)
	var invalid *InvalidCopyfromRevError
	assert.ErrorAs(t, err, &invalid)
}
