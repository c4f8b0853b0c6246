package workers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// moveToLibrary relocates a staged output into the library directory and
// returns the final path. Falls back to copy-and-delete when staging and
// library live on different filesystems.
func moveToLibrary(stagedPath, libraryDir string) (string, error) {
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		return "", fmt.Errorf("create library directory: %w", err)
	}

	dest := uniquePath(filepath.Join(libraryDir, filepath.Base(stagedPath)))
	if err := os.Rename(stagedPath, dest); err == nil {
		return dest, nil
	}

	if err := copyFile(stagedPath, dest); err != nil {
		return "", err
	}
	if err := os.Remove(stagedPath); err != nil {
		return "", fmt.Errorf("remove staged file: %w", err)
	}
	return dest, nil
}

// uniquePath appends a numeric suffix until the path does not collide with an
// existing file.
func uniquePath(dest string) string {
	if _, err := os.Stat(dest); err != nil {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create library file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy to library: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close library file: %w", err)
	}
	return nil
}
