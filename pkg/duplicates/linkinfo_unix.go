//go:build unix

package duplicates

import (
	"fmt"
	"syscall"
)

// getFileID returns the unique file identifier (device + inode) for a file.
// This uses direct syscall.Stat() instead of os.Stat() for better performance.
func getFileID(path string) (FileID, error) {
	var stat syscall.Stat_t
	if err := syscall.Stat(path, &stat); err != nil {
		return FileID{}, fmt.Errorf("stat file: %w", err)
	}

	return FileID{
		Device: uint64(stat.Dev),
		Inode:  uint64(stat.Ino),
	}, nil
}
