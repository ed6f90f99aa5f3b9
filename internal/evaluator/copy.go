package evaluator

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// copyDir recursively copies src into dst, preserving file modes, and
// returns the number of regular files copied.
func copyDir(src, dst string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(dst, relPath)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(targetPath, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			if err := copyFile(path, targetPath, info.Mode().Perm()); err != nil {
				return err
			}
			count++
			return nil
		default:
			// Symlinks and special files are not build artifacts
			return nil
		}
	})
	return count, err
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
