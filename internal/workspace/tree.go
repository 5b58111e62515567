package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Recreate removes dir and everything below it, then creates it again together with the
// given subdirectories.
func Recreate(dir string, subdirs ...string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove directory").
			WithContext(logfields.KeyPath, dir).
			Build()
	}
	for _, d := range append([]string{dir}, joinAll(dir, subdirs)...) {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create directory").
				WithContext(logfields.KeyPath, d).
				Build()
		}
	}
	return nil
}

func joinAll(dir string, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, filepath.Join(dir, n))
	}
	return out
}

// CopyFile copies src to dst, creating dst's parent directories. Symbolic links are
// followed. An existing dst is unlinked first, so a hard link to it elsewhere keeps its
// content.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "open file").
			WithContext(logfields.KeyPath, src).
			Build()
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create directory").
			WithContext(logfields.KeyPath, filepath.Dir(dst)).
			Build()
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "replace file").
			WithContext(logfields.KeyPath, dst).
			Build()
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create file").
			WithContext(logfields.KeyPath, dst).
			Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "copy file").
			WithContext(logfields.KeyPath, src).
			WithContext(logfields.KeyOutput, dst).
			Build()
	}
	if err := out.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "close file").
			WithContext(logfields.KeyPath, dst).
			Build()
	}
	return nil
}

// CopyTree mirrors the files below src into dst. Hidden entries are skipped. A missing src
// copies nothing. It returns the number of files copied.
func CopyTree(src, dst string) (int, error) {
	copied := 0
	err := Walk(src, func(path string, d fs.DirEntry) error {
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if err := CopyFile(path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// LinkTree mirrors the files below src into dst with hard links, copying files that cannot
// be linked. A missing src links nothing. It returns the number of files mirrored.
func LinkTree(src, dst string) (int, error) {
	linked := 0
	err := Walk(src, func(path string, d fs.DirEntry) error {
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if err := os.Link(path, target); err != nil {
			if err := CopyFile(path, target); err != nil {
				return err
			}
		}
		linked++
		return nil
	})
	return linked, err
}

// Swap replaces live with staged by renaming. The previous live tree is moved to retired
// and left for the caller to remove. When live does not exist staged is simply renamed.
// If the second rename fails the previous tree is moved back.
func Swap(staged, live, retired string) error {
	if err := os.RemoveAll(retired); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "remove retired directory").
			WithContext(logfields.KeyPath, retired).
			Build()
	}
	hadLive := true
	if err := os.Rename(live, retired); err != nil {
		if !os.IsNotExist(err) {
			return errors.WrapError(err, errors.CategoryFileSystem, "retire directory").
				WithContext(logfields.KeyPath, live).
				Build()
		}
		hadLive = false
	}
	if err := os.Rename(staged, live); err != nil {
		if hadLive {
			_ = os.Rename(retired, live)
		}
		return errors.WrapError(err, errors.CategoryFileSystem, "publish directory").
			WithContext(logfields.KeyPath, staged).
			WithContext(logfields.KeyOutput, live).
			Build()
	}
	return nil
}
