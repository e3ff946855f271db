package domain

import "strings"

// Flags is the monotonic lifecycle bitset of an Operation.
// Bits are only ever set, never cleared.
type Flags uint8

const (
	// FlagNonCanon excludes the operation from canonical history.
	FlagNonCanon Flags = 1 << iota
	// FlagInvalid forbids any further apply or propagation.
	FlagInvalid
	// FlagResolvedConflict marks the output of conflict resolution.
	FlagResolvedConflict
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f *Flags) set(f2 Flags) { *f |= f2 }

// Status folds the flags into the lifecycle tag.
func (f Flags) Status() Status {
	switch {
	case f.Has(FlagInvalid):
		return StatusInvalid
	case f.Has(FlagNonCanon):
		return StatusNonCanon
	default:
		return StatusActive
	}
}

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagNonCanon) {
		parts = append(parts, "noncanon")
	}
	if f.Has(FlagInvalid) {
		parts = append(parts, "invalid")
	}
	if f.Has(FlagResolvedConflict) {
		parts = append(parts, "resolved")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Status is the lifecycle tag of an Operation. Invalid dominates NonCanon.
type Status string

const (
	StatusActive   Status = "active"
	StatusNonCanon Status = "noncanon"
	StatusInvalid  Status = "invalid"
)
