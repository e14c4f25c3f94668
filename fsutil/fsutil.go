package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Transform rewrites file contents while a tree is copied. rel is the
// slash-separated path relative to the source root.
type Transform func(rel string, data []byte) ([]byte, error)

// CopyFile copies src to dst with the same permission bits, creating missing
// directories. The copy is flushed to disk before it returns.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// CopyTree copies an entire directory tree to dst preserving structure. When
// transform is non-nil every file passes through it.
func CopyTree(src, dst string, transform Transform) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			return os.MkdirAll(target, 0o755)
		}
		if transform == nil {
			return CopyFile(path, target)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, err := transform(filepath.ToSlash(rel), data)
		if err != nil {
			return fmt.Errorf("transform %s: %w", rel, err)
		}
		return WriteFile(target, out)
	})
}

// WriteFile writes data to dst creating missing directories.
func WriteFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// SwapDir replaces finalDir with stagedDir. The previous tree is parked at
// finalDir+".old" and restored if the rename fails.
func SwapDir(stagedDir, finalDir string) error {
	parent := filepath.Dir(finalDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("ensure output parent: %w", err)
	}

	backupDir := finalDir + ".old"
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("clean backup dir: %w", err)
	}
	if err := os.Rename(finalDir, backupDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate old output: %w", err)
	}
	if err := os.Rename(stagedDir, finalDir); err != nil {
		_ = os.Rename(backupDir, finalDir)
		return fmt.Errorf("activate new output: %w", err)
	}

	_ = os.RemoveAll(backupDir)
	return nil
}
