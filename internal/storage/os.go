package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
)

// OS is the real-filesystem adapter.
type OS struct{}

// NewOS returns the pass-through adapter.
func NewOS() OS { return OS{} }

func (OS) ReadFile(_ context.Context, path string) ([]byte, error) {
	// #nosec G304 -- paths come from the resolved project layout.
	return os.ReadFile(path)
}

func (OS) WriteFile(_ context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) // #nosec G306 -- published site content is world-readable
}

func (OS) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(path, 0o750)
}

func (OS) Remove(_ context.Context, path string) error {
	err := os.RemoveAll(path)
	if err != nil && IsNotExist(err) {
		return nil
	}
	return err
}

func (OS) ReadDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (OS) Stat(_ context.Context, path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: fi.Name(), Size: fi.Size(), IsDir: fi.IsDir()}, nil
}

func (OS) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if IsNotExist(err) {
		return false, nil
	}
	return false, err
}
