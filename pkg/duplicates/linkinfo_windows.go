package duplicates

import (
	"fmt"
	"syscall"
)

// getFileID returns the unique file identifier for a file on Windows:
// the volume serial number combined with the 64-bit file index.
func getFileID(path string) (FileID, error) {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return FileID{}, fmt.Errorf("convert path to UTF16: %w", err)
	}

	h, err := syscall.CreateFile(pathp, 0, 0, nil, syscall.OPEN_EXISTING,
		uint32(syscall.FILE_FLAG_BACKUP_SEMANTICS), 0)
	if err != nil {
		return FileID{}, fmt.Errorf("open file: %w", err)
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &info); err != nil {
		return FileID{}, fmt.Errorf("get file info: %w", err)
	}

	return FileID{
		Device: uint64(info.VolumeSerialNumber),
		Inode:  (uint64(info.FileIndexHigh) << 32) | uint64(info.FileIndexLow),
	}, nil
}
