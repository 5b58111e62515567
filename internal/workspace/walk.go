package workspace

import (
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// WalkFunc is called for every directory and file below the walk root, parents before
// children and siblings in name order.
type WalkFunc func(path string, d fs.DirEntry) error

// Walk visits the tree below root, skipping hidden entries and following symbolic links.
// Links that resolve to a directory already on the current path are not descended into.
// A missing root is not an error.
func Walk(root string, fn WalkFunc) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "stat walk root").
			WithContext(logfields.KeyPath, root).
			Build()
	}
	if !info.IsDir() {
		return errors.NewError(errors.CategoryFileSystem, "walk root is not a directory").
			WithContext(logfields.KeyPath, root).
			Build()
	}
	real, err := filepath.EvalSymlinks(root)
	if err != nil {
		real = root
	}
	return walkDir(root, fn, map[string]bool{real: true})
}

func walkDir(dir string, fn WalkFunc, ancestors map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "read directory").
			WithContext(logfields.KeyPath, dir).
			Build()
	}
	for _, entry := range entries {
		if document.IsHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		d := entry
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "resolve symbolic link").
					WithContext(logfields.KeyPath, path).
					Build()
			}
			d = fs.FileInfoToDirEntry(info)
		}

		if err := fn(path, d); err != nil {
			return err
		}
		if !d.IsDir() {
			continue
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			real = path
		}
		if ancestors[real] {
			continue
		}
		ancestors[real] = true
		err = walkDir(path, fn, ancestors)
		delete(ancestors, real)
		if err != nil {
			return err
		}
	}
	return nil
}
