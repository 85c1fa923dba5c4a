package duplicates

import (
	"time"

	"github.com/fsaudit/fsaudit/pkg/scanner"
)

// Group is one set of files holding identical content.
type Group struct {
	Digest string
	// Size is the common file size; members of a group always share it.
	Size  uint64
	Files []scanner.FileRecord // sorted by path

	// Wasted is the reclaimable space in this group: one physical copy is
	// kept, hardlinked members do not count as extra copies.
	Wasted uint64
}

func (g Group) Count() int {
	return len(g.Files)
}

type Stats struct {
	ScannedFiles   int
	BelowMinSize   int
	UniqueSize     int // files skipped without digesting, their size had no peer
	Digested       int
	ReadErrors     int
	Groups         int
	DuplicateFiles int
	// HardlinkedCopies counts group members sharing storage with another
	// member, excluded from WastedBytes.
	HardlinkedCopies int
	WastedBytes      uint64
	Elapsed          time.Duration
}
