//go:build !windows

package scheduler

import "golang.org/x/sys/unix"

// UnixDiskSpaceProbe implements DiskSpaceProbe via statfs(2).
type UnixDiskSpaceProbe struct{}

func (UnixDiskSpaceProbe) FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil //nolint:gosec // statfs fields are unsigned on every unix GOARCH we target
}
