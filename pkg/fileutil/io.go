package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/karrick/godirwalk"
)

const (
	DefaultDirectoryMask = 0o755
	DefaultFileMask      = 0o644
)

// IsDir Returns true if p is a directory, otherwise false
func IsDir(p string) (bool, error) {
	stat, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return stat.IsDir(), nil
}

func IsDirEmpty(dir string) (bool, error) {
	s, err := godirwalk.NewScanner(dir)
	if err != nil {
		return false, err
	}
	// Attempt to read only the first directory entry. Note that Scan skips both "." and ".." entries.
	hasAtLeastOneChild := s.Scan()
	if err = s.Err(); err != nil {
		return false, err
	}

	if hasAtLeastOneChild {
		return false, nil
	}
	return true, nil
}

// CopyFile copies the contents of src into dst, creating dst's directory (including
// parents) if needed. An existing dst is truncated.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), DefaultDirectoryMask); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, DefaultFileMask)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// RemoveDirFiles removes the regular files directly inside dir, leaving dir itself and
// any subdirectories in place. Removal continues past individual failures; all failures
// are returned accumulated.
func RemoveDirFiles(dir string) error {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return err
	}
	var merr *multierror.Error
	for _, dirent := range dirents {
		if dirent.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, dirent.Name())); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
