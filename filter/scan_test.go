package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/record"
)

func newScanner(dump string, matcher *pathmatch.Matcher) *Scanner {
	parser := record.NewParser(record.NewByteReader(strings.NewReader(dump)))
	return &Scanner{Parser: parser, Matcher: matcher}
}

func TestScanFindsCopyFromExcludedSource(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		copyNode("trunk/lib", "dir", "vendor/lib", 0),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Revision)
	assert.Equal(t, "trunk/lib", findings[0].Path)
	assert.Equal(t, "vendor/lib", findings[0].CopyfromPath)
	assert.Equal(t, 0, findings[0].CopyfromRev)
}

func TestScanIgnoresCopyFromIncludedSource(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		copyNode("trunk/copy", "dir", "trunk", 0),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Empty(t, findings)
}

func TestScanIgnoresExcludedDestination(t *testing.T) {
	dump := buildDump(
		revision(0),
		revision(1),
		copyNode("other/copy", "dir", "vendor/lib", 0),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Empty(t, findings, "a node outside the included set is not itself a trigger")
}

func TestScanIgnoresNonCopyNodes(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		addFile("trunk/a.txt", "x"),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Empty(t, findings)
}

func TestScanFindsCopyFromDroppedRevision(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1), // empty once filtered: dropped under the default policy
		revision(2),
		copyNode("trunk/copy", "dir", "trunk", 1),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	parser := record.NewParser(record.NewByteReader(strings.NewReader(dump)))
	s := &Scanner{Parser: parser, Matcher: matcher, Renumber: NewRenumberMap(false, false)}

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Len(t, findings, 1, "trunk survives but revision 1 does not, so the copy still needs untangling")
	assert.Equal(t, 2, findings[0].Revision)
	assert.Equal(t, "trunk", findings[0].CopyfromPath)
	assert.Equal(t, 1, findings[0].CopyfromRev)
}

func TestScanWithoutRenumberMapOnlyChecksPathInclusion(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		revision(2),
		copyNode("trunk/copy", "dir", "trunk", 1),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Empty(t, findings, "with no Renumber map the Scanner cannot see dropped revisions")
}

func TestScanTracksCurrentRevisionAcrossMultipleNodes(t *testing.T) {
	dump := buildDump(
		revision(0),
		addDir("trunk"),
		revision(1),
		copyNode("trunk/a", "dir", "vendor/a", 0),
		revision(2),
		copyNode("trunk/b", "dir", "vendor/b", 0),
	)
	matcher := pathmatch.New(pathmatch.Include, []string{"trunk"})
	s := newScanner(dump, matcher)

	findings, err := s.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Len(t, findings, 2)
	assert.Equal(t, 1, findings[0].Revision)
	assert.Equal(t, 2, findings[1].Revision)
}
