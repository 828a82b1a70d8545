// Package storage provides a uniform filesystem abstraction for Satsuma builds.
//
// Two adapters implement it: OS passes through to the real filesystem, Memory
// keeps files and directories in maps so planners and the committer can be
// exercised without disk I/O.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
)

// Adapter is the filesystem surface used by planners and the committer.
// All paths are absolute.
type Adapter interface {
	// ReadFile returns the content of a file.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes data to path, creating parent directories.
	WriteFile(ctx context.Context, path string, data []byte) error

	// MkdirAll creates a directory and all missing parents.
	MkdirAll(ctx context.Context, path string) error

	// Remove deletes path recursively. A missing path is not an error.
	Remove(ctx context.Context, path string) error

	// ReadDir returns the sorted names of the direct children of a directory.
	ReadDir(ctx context.Context, path string) ([]string, error)

	// Stat describes a path.
	Stat(ctx context.Context, path string) (Info, error)

	// Exists reports whether a file or directory exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Info describes a file or directory.
type Info struct {
	Name  string
	Size  int64
	IsDir bool
}

// IsNotExist reports whether err means the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// Walk calls fn for every regular file below root, in lexical order.
// Directories for which skipDir returns true are not descended into.
// A missing root yields no files.
func Walk(ctx context.Context, a Adapter, root string, skipDir func(path, name string) bool, fn func(path string) error) error {
	names, err := a.ReadDir(ctx, root)
	if err != nil {
		if IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(root, name)
		info, err := a.Stat(ctx, p)
		if err != nil {
			if IsNotExist(err) {
				continue
			}
			return err
		}
		if info.IsDir {
			if skipDir != nil && skipDir(p, name) {
				continue
			}
			if err := Walk(ctx, a, p, skipDir, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Files returns every file below root in lexical order.
func Files(ctx context.Context, a Adapter, root string) ([]string, error) {
	var out []string
	err := Walk(ctx, a, root, nil, func(p string) error {
		out = append(out, p)
		return nil
	})
	return out, err
}
