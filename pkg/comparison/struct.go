package comparison

import (
	"time"

	"github.com/pkg/errors"
)

// Mode selects how content equivalence is evaluated for same-sized pairs.
type Mode string

const (
	// ModeChecksum digests both files and compares digests.
	ModeChecksum Mode = "checksum"
	// ModeBytes reads both files in lockstep and compares chunks directly.
	ModeBytes Mode = "bytes"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChecksum, ModeBytes:
		return Mode(s), nil
	}

	return "", errors.Errorf("unknown comparison mode: %q", s)
}

// Verdict is the tri-state outcome of a size or content check. The zero
// value is VerdictUnknown: not evaluated, never a claim of difference.
type Verdict uint8

const (
	VerdictUnknown Verdict = iota
	VerdictSame
	VerdictDiffer
)

func (v Verdict) String() string {
	switch v {
	case VerdictSame:
		return "same"
	case VerdictDiffer:
		return "differ"
	default:
		return "unknown"
	}
}

// Outcome is one comparison row: a relative path seen in either tree.
type Outcome struct {
	RelPath     string
	InLeft      bool
	InRight     bool
	SizeSame    Verdict
	ContentSame Verdict
}

// Identical reports a file present in both trees with matching content.
func (o Outcome) Identical() bool {
	return o.InLeft && o.InRight && o.ContentSame == VerdictSame
}

type Stats struct {
	LeftFiles         int
	RightFiles        int
	OnlyLeft          int
	OnlyRight         int
	InBoth            int
	Identical         int
	SizeMismatched    int
	ContentMismatched int
	ReadErrors        int
	Elapsed           time.Duration
}
