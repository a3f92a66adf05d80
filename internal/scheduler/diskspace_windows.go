//go:build windows

package scheduler

import "golang.org/x/sys/windows"

// UnixDiskSpaceProbe implements DiskSpaceProbe via GetDiskFreeSpaceEx. The
// name is kept identical across build tags so callers never branch on OS.
type UnixDiskSpaceProbe struct{}

func (UnixDiskSpaceProbe) FreeBytes(path string) (uint64, error) {
	var freeBytes uint64
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytes, nil, nil); err != nil {
		return 0, err
	}
	return freeBytes, nil
}
