package duplicates

import "fmt"

// FileID identifies the physical file behind a path: device + inode on
// unix, volume serial number + file index on Windows. Two paths with the
// same FileID share storage.
type FileID struct {
	Device uint64
	Inode  uint64
}

func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}
