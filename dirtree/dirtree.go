// Package dirtree tracks the set of paths already known to exist in an
// output dump stream. The Dependent-Directory Synthesizer uses it to
// find which ancestors of a newly-added path still need a synthetic
// "add dir" record, and the Driver uses it to record every directory
// and file it has actually emitted, removing a path again when it emits
// a delete for it.
//
// The walk here mirrors a conventional per-branch file-tree tracker: a
// node per path component, children found by linear scan (dump-stream
// directories are shallow and walked once per node, so this stays cheap
// in practice).
package dirtree

import "strings"

// Tree is the emitted-paths set for one output run. The zero value is
// ready to use.
type Tree struct {
	root node
}

type node struct {
	name     string
	isDir    bool
	present  bool // true once a record for this exact path has been emitted
	children []*node
}

// Mark records that path now exists in the output, as the given kind.
// Calling Mark on a path already marked is a no-op.
func (t *Tree) Mark(path string, isDir bool) {
	path = trim(path)
	if path == "" {
		return
	}
	t.markParts(&t.root, strings.Split(path, "/"), isDir)
}

func (t *Tree) markParts(n *node, parts []string, isDir bool) {
	name := parts[0]
	child := find(n, name)
	if child == nil {
		child = &node{name: name}
		n.children = append(n.children, child)
	}
	if len(parts) == 1 {
		child.present = true
		child.isDir = isDir
		return
	}
	child.isDir = true
	t.markParts(child, parts[1:], isDir)
}

// Contains reports whether path has been marked present.
func (t *Tree) Contains(path string) bool {
	path = trim(path)
	if path == "" {
		return true // the repository root always "exists"
	}
	n := &t.root
	for _, part := range strings.Split(path, "/") {
		n = find(n, part)
		if n == nil {
			return false
		}
	}
	return n.present
}

// Forget removes path (and, if it was a directory, everything under it)
// from the set. Used when a node is deleted so a later add at the same
// path re-triggers dependent-directory synthesis correctly only if an
// ancestor was also removed; deletes never remove ancestors themselves.
func (t *Tree) Forget(path string) {
	path = trim(path)
	if path == "" {
		return
	}
	parts := strings.Split(path, "/")
	n := &t.root
	for i, part := range parts {
		child := find(n, part)
		if child == nil {
			return
		}
		if i == len(parts)-1 {
			removeChild(n, part)
			return
		}
		n = child
	}
}

// MissingAncestors returns the proper ancestors of path, root-to-leaf,
// that are not yet marked present in the tree.
func (t *Tree) MissingAncestors(path string) []string {
	path = trim(path)
	parts := strings.Split(path, "/")
	if len(parts) <= 1 {
		return nil
	}
	var missing []string
	n := &t.root
	for i := 0; i < len(parts)-1; i++ {
		child := find(n, parts[i])
		ancestor := strings.Join(parts[:i+1], "/")
		if child == nil || !child.present {
			missing = append(missing, ancestor)
		}
		if child == nil {
			child = &node{name: parts[i]}
			n.children = append(n.children, child)
		}
		n = child
	}
	return missing
}

func find(n *node, name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func removeChild(n *node, name string) {
	for i, c := range n.children {
		if c.name == name {
			n.children[i] = n.children[len(n.children)-1]
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

func trim(path string) string {
	return strings.Trim(path, "/")
}
