package filter

import (
	"io"

	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/record"
)

// Finding reports one copy whose source would require untangling: an
// included node copied from an excluded path, or (when the Scanner has a
// Renumber map) from a revision that renumbering drops. Scan Mode collects these without touching the Repository Probe
// or producing output, so a caller can decide on an include/exclude set
// before paying for a real filter pass.
type Finding struct {
	Revision     int
	Path         string
	CopyfromRev  int
	CopyfromPath string
}

// Scanner runs a read-only pass over a dump stream, reporting every
// would-be untangle trigger: an included node whose copy source is
// excluded, or lies in a revision that renumbering would drop.
type Scanner struct {
	Parser  *record.Parser
	Matcher *pathmatch.Matcher

	// Renumber, if set, is closed revision-by-revision exactly as a real
	// filter pass would close it, so a copy from a path-included but
	// since-dropped revision is also reported. Left nil, the Scanner
	// only checks path inclusion.
	Renumber *RenumberMap
}

// Scan consumes the Scanner's Parser to exhaustion and returns every
// Finding in input order.
func (s *Scanner) Scan() ([]Finding, error) {
	var findings []Finding
	currentRev := 0
	hadContent := true // revision 0 is never a drop candidate
	inRevision := false

	closeCurrent := func() {
		if s.Renumber != nil && inRevision {
			s.Renumber.CloseRevision(currentRev, hadContent)
		}
	}

	for {
		rec, err := s.Parser.Next()
		if err == io.EOF {
			closeCurrent()
			return findings, nil
		}
		if err != nil {
			return findings, err
		}
		switch rec.Kind {
		case record.KindRevision:
			closeCurrent()
			inRevision = true
			currentRev, _ = rec.RevisionNumber()
			hadContent = currentRev == 0
		case record.KindNode:
			path := rec.Path()
			if s.Matcher.IsIncluded(path) {
				hadContent = true
			}
			copyfromPath, hasCopy := rec.CopyfromPath()
			if !hasCopy || !s.Matcher.IsIncluded(path) {
				continue
			}
			copyfromRev, _ := rec.CopyfromRev()
			triggered := !s.Matcher.IsIncluded(copyfromPath)
			if !triggered && s.Renumber != nil {
				triggered = s.Renumber.WasDropped(copyfromRev)
			}
			if !triggered {
				continue
			}
			findings = append(findings, Finding{
				Revision:     currentRev,
				Path:         path,
				CopyfromRev:  copyfromRev,
				CopyfromPath: copyfromPath,
			})
		}
	}
}
