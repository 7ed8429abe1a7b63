// Package probe defines the Repository Probe capability: the core's
// only way to recover content that an excluded copy source removed
// from the input dump. Implementations live outside the core —
// this package supplies one in-memory fixture for tests and one
// production implementation that shells out to the real svnlook tool.
package probe

import (
	"errors"

	"github.com/rcowham/svndumpfilter2/record"
)

// Kind distinguishes a file entry from a directory entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// ErrNotFound is returned when the requested (rev, path) does not exist
// in the repository. The core reports this as MissingUntangleSource.
var ErrNotFound = errors.New("probe: path not found")

// Entry is the content the Probe returns for one (rev, path) lookup.
type Entry struct {
	Kind    Kind
	Props   *record.PropBlock
	Content []byte // nil for directories
}

// Probe is the single capability the Untangler needs: given a revision
// and a path, return its kind, properties and content, or ErrNotFound.
// Implementations must be read-only — there is no mutating method.
type Probe interface {
	// Lookup returns the node at (rev, path), or ErrNotFound.
	Lookup(rev int, path string) (*Entry, error)

	// ListChildren returns the immediate child basenames of the
	// directory at (rev, path). It is only ever called after a Lookup
	// at the same (rev, path) returned KindDir.
	ListChildren(rev int, path string) ([]string, error)
}
