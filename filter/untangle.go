package filter

import (
	"sort"

	"github.com/h2non/filetype"

	"github.com/rcowham/svndumpfilter2/pathmatch"
	"github.com/rcowham/svndumpfilter2/probe"
	"github.com/rcowham/svndumpfilter2/record"
)

// Untangler rewrites a node whose copy source resolved to an excluded
// (or dropped) origin into one or more self-contained "add" records,
// with content pulled through the Repository Probe.
type Untangler struct {
	Probe   probe.Probe
	Matcher *pathmatch.Matcher
	Props   *PropertyRewriter

	// SniffMimeType enables content-sniffing fallback mime-type
	// assignment for inlined content that carries no svn:mime-type of
	// its own, via github.com/h2non/filetype.
	SniffMimeType bool
}

// Needed reports whether rec (an included node carrying a copyfrom)
// needs untangling: its source is excluded, or its source revision was
// dropped by renumbering with preserve-empty off.
func (u *Untangler) Needed(rec *record.Record, renumber *RenumberMap) bool {
	srcPath, ok := rec.CopyfromPath()
	if !ok {
		return false
	}
	if !u.Matcher.IsIncluded(srcPath) {
		return true
	}
	srcRev, _ := rec.CopyfromRev()
	return renumber.WasDropped(srcRev)
}

// Untangle resolves rec's copy source at srcRev and returns the
// replacement record sequence: one record for a file source, or an
// "add dir" followed by its descendants in depth-first lexicographic
// order for a directory source. A *MissingUntangleSourceError it returns
// carries srcRev as TriggeringRev, since the Untangler does not know the
// revision of rec; the Driver replaces it with that revision.
func (u *Untangler) Untangle(rec *record.Record, srcRev int) ([]*record.Record, error) {
	srcPath, _ := rec.CopyfromPath()
	dstPath := rec.Path()

	entry, err := u.lookup(srcRev, srcPath, srcRev, dstPath)
	if err != nil {
		return nil, err
	}

	if entry.Kind == probe.KindFile {
		rec := u.buildFile(dstPath, entry, rec.Props)
		return []*record.Record{rec}, nil
	}

	out := []*record.Record{u.buildDir(dstPath, entry, rec.Props)}
	children, err := u.enumerate(srcRev, srcPath, dstPath, srcRev, dstPath)
	if err != nil {
		return nil, err
	}
	out = append(out, children...)
	return out, nil
}

// enumerate walks srcPath's descendants depth-first in lexicographic
// sibling order, building a synthetic record for each.
func (u *Untangler) enumerate(srcRev int, srcPath, dstPath string, origRev int, origDst string) ([]*record.Record, error) {
	names, err := u.Probe.ListChildren(srcRev, srcPath)
	if err != nil {
		return nil, u.wrapErr(err, srcRev, srcPath, origRev, origDst)
	}
	sort.Strings(names)

	var out []*record.Record
	for _, name := range names {
		childSrc := srcPath + "/" + name
		childDst := dstPath + "/" + name
		entry, err := u.lookup(srcRev, childSrc, origRev, origDst)
		if err != nil {
			return nil, err
		}
		if entry.Kind == probe.KindFile {
			out = append(out, u.buildFile(childDst, entry, nil))
			continue
		}
		out = append(out, u.buildDir(childDst, entry, nil))
		grandchildren, err := u.enumerate(srcRev, childSrc, childDst, origRev, origDst)
		if err != nil {
			return nil, err
		}
		out = append(out, grandchildren...)
	}
	return out, nil
}

func (u *Untangler) lookup(rev int, path string, origRev int, origDst string) (*probe.Entry, error) {
	entry, err := u.Probe.Lookup(rev, path)
	if err != nil {
		return nil, u.wrapErr(err, rev, path, origRev, origDst)
	}
	return entry, nil
}

func (u *Untangler) wrapErr(err error, rev int, path string, origRev int, origDst string) error {
	if err == probe.ErrNotFound {
		return &MissingUntangleSourceError{SrcRev: rev, SrcPath: path, TriggeringRev: origRev, TriggeringPath: origDst}
	}
	return &ProbeErrorWrap{Rev: rev, Path: path, Err: err}
}

func (u *Untangler) buildFile(path string, entry *probe.Entry, own *record.PropBlock) *record.Record {
	props := mergeProps(own, entry.Props)
	u.sniffMime(props, entry.Content)
	props = u.Props.Mark(props)
	headers := record.HeaderList{}
	headers.Set("Node-path", path)
	headers.Set("Node-kind", "file")
	headers.Set("Node-action", "add")
	return &record.Record{Kind: record.KindNode, Synthetic: true, Headers: headers, Props: props, Text: entry.Content}
}

func (u *Untangler) buildDir(path string, entry *probe.Entry, own *record.PropBlock) *record.Record {
	props := mergeProps(own, entry.Props)
	props = u.Props.Mark(props)
	headers := record.HeaderList{}
	headers.Set("Node-path", path)
	headers.Set("Node-kind", "dir")
	headers.Set("Node-action", "add")
	return &record.Record{Kind: record.KindNode, Synthetic: true, Headers: headers, Props: props}
}

// mergeProps combines a node's own explicit property delta with the
// properties retrieved from the Probe, with own winning on collision.
func mergeProps(own, retrieved *record.PropBlock) *record.PropBlock {
	merged := record.NewPropBlock()
	if own != nil {
		merged = own.Clone()
	}
	merged.Merge(retrieved)
	return merged
}

func (u *Untangler) sniffMime(props *record.PropBlock, content []byte) {
	if !u.SniffMimeType || content == nil {
		return
	}
	if _, ok := props.Get(record.MimeTypeKey); ok {
		return
	}
	head := content
	if len(head) > 261 {
		head = head[:261]
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return
	}
	props.Set(record.MimeTypeKey, []byte(kind.MIME.Value))
}
