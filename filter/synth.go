package filter

import (
	"github.com/rcowham/svndumpfilter2/dirtree"
	"github.com/rcowham/svndumpfilter2/record"
)

// synthesizeAncestors returns synthetic "add dir" records for every
// ancestor of path not yet present in tree, ordered root-to-leaf so each
// parent is emitted before its child, and immediately before the node
// that triggered the gap. It does not mark tree itself; the caller marks
// each ancestor present as it emits it.
func synthesizeAncestors(tree *dirtree.Tree, path string, props *PropertyRewriter) []*record.Record {
	missing := tree.MissingAncestors(path)
	if len(missing) == 0 {
		return nil
	}
	out := make([]*record.Record, 0, len(missing))
	for _, ancestor := range missing {
		out = append(out, synthesizeDir(ancestor, props))
	}
	return out
}

func synthesizeDir(path string, props *PropertyRewriter) *record.Record {
	headers := record.HeaderList{}
	headers.Set("Node-path", path)
	headers.Set("Node-kind", "dir")
	headers.Set("Node-action", "add")
	return &record.Record{
		Kind:      record.KindNode,
		Synthetic: true,
		Headers:   headers,
		Props:     props.Mark(nil),
	}
}
