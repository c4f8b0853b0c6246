package workers

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkFreeSpace refuses to run workers against a nearly full staging
// volume.
func checkFreeSpace(path string, minGiB int) error {
	if minGiB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	min := uint64(minGiB) << 30
	if free < min {
		return fmt.Errorf("staging volume %s has %.1f GiB free, need at least %d GiB",
			path, float64(free)/float64(1<<30), minGiB)
	}
	return nil
}
