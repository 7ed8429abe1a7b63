package filter

// RenumberMap maintains the monotonic mapping from input revision numbers
// to output revision numbers, implementing three renumbering policies:
// drop-empty (default), preserve-empty (-k), and stop-renumbering (-s).
type RenumberMap struct {
	preserveEmpty   bool
	stopRenumbering bool

	// lastOutput is the most recently assigned output revision number,
	// or noneYet if nothing has survived.
	lastOutput int

	mapping map[int]int
	dropped map[int]bool
}

// noneYet is the sentinel "no output revision has been assigned" value,
// distinct from the legitimate output revision 0.
const noneYet = -1

// NewRenumberMap constructs a RenumberMap under the given policy flags.
func NewRenumberMap(preserveEmpty, stopRenumbering bool) *RenumberMap {
	return &RenumberMap{
		preserveEmpty:   preserveEmpty,
		stopRenumbering: stopRenumbering,
		lastOutput:      noneYet,
		mapping:         make(map[int]int),
		dropped:         make(map[int]bool),
	}
}

// PeekNextOutput previews the output revision number inputRev would get
// if CloseRevision keeps it, without committing anything.
func (m *RenumberMap) PeekNextOutput(inputRev int) int {
	if m.stopRenumbering {
		return inputRev
	}
	return m.lastOutput + 1
}

// CloseRevision commits inputRev's fate: hadContent is whether any
// included node was buffered for it. Under stop-renumbering, drops are
// forbidden and every revision keeps its input number verbatim.
func (m *RenumberMap) CloseRevision(inputRev int, hadContent bool) {
	if m.stopRenumbering {
		m.mapping[inputRev] = inputRev
		m.lastOutput = inputRev
		return
	}
	if hadContent || m.preserveEmpty {
		m.lastOutput++
		m.mapping[inputRev] = m.lastOutput
		return
	}
	m.mapping[inputRev] = m.lastOutput
	m.dropped[inputRev] = true
}

// Kept reports whether a revision with the given hadContent outcome
// would survive renumbering under the configured policy, without
// mutating any state. The Driver uses this to decide whether to write a
// revision before committing it with CloseRevision.
func (m *RenumberMap) Kept(hadContent bool) bool {
	if m.stopRenumbering {
		return true
	}
	return hadContent || m.preserveEmpty
}

// TranslateCopyfrom returns the output revision inputRev maps to. ok is
// false if inputRev was dropped with nothing preceding it (an output
// revision 0 never exists to fall back to), which the Driver surfaces as
// InvalidCopyfromRevError.
func (m *RenumberMap) TranslateCopyfrom(inputRev int) (int, bool) {
	out, known := m.mapping[inputRev]
	if !known {
		return 0, false
	}
	if out == noneYet {
		return 0, false
	}
	return out, true
}

// WasDropped reports whether inputRev was closed as dropped rather than
// surviving with its own output revision. Used by the Untangler to treat
// a copyfrom into a dropped revision as an untangle trigger. Returns
// false for a revision not yet closed.
func (m *RenumberMap) WasDropped(inputRev int) bool {
	return m.dropped[inputRev]
}
