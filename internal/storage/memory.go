package storage

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory adapter for deterministic tests.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
	calls MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	ReadFile  int
	WriteFile int
	Remove    int
}

// NewMemory creates an in-memory adapter seeded with files (path -> content).
func NewMemory(seed map[string]string) *Memory {
	m := &Memory{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{string(filepath.Separator): {}},
	}
	for p, content := range seed {
		m.put(clean(p), []byte(content))
	}
	return m
}

func clean(p string) string {
	if !filepath.IsAbs(p) {
		p = string(filepath.Separator) + p
	}
	return filepath.Clean(p)
}

// put stores a file and its parent directories. Caller holds the lock.
func (m *Memory) put(p string, data []byte) {
	m.mkdirs(filepath.Dir(p))
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[p] = buf
}

func (m *Memory) mkdirs(dir string) {
	for {
		m.dirs[dir] = struct{}{}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (m *Memory) ReadFile(_ context.Context, path string) ([]byte, error) {
	p := clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.ReadFile++
	data, ok := m.files[p]
	if !ok {
		return nil, notExist("open", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) WriteFile(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.WriteFile++
	m.put(clean(path), data)
	return nil
}

func (m *Memory) MkdirAll(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirs(clean(path))
	return nil
}

func (m *Memory) Remove(_ context.Context, path string) error {
	p := clean(path)
	prefix := p + string(filepath.Separator)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Remove++
	delete(m.files, p)
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			delete(m.files, k)
		}
	}
	for k := range m.dirs {
		if k == p || strings.HasPrefix(k, prefix) {
			delete(m.dirs, k)
		}
	}
	return nil
}

func (m *Memory) ReadDir(_ context.Context, path string) ([]string, error) {
	p := clean(path)
	prefix := p + string(filepath.Separator)
	if p == string(filepath.Separator) {
		prefix = p
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.dirs[p]; !ok {
		return nil, notExist("readdir", path)
	}
	children := make(map[string]struct{})
	collect := func(k string) {
		if !strings.HasPrefix(k, prefix) || k == p {
			return
		}
		rest := k[len(prefix):]
		if rest != "" && !strings.ContainsRune(rest, filepath.Separator) {
			children[rest] = struct{}{}
		}
	}
	for k := range m.files {
		collect(k)
	}
	for k := range m.dirs {
		collect(k)
	}
	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Stat(_ context.Context, path string) (Info, error) {
	p := clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.dirs[p]; ok {
		return Info{Name: filepath.Base(p), IsDir: true}, nil
	}
	if data, ok := m.files[p]; ok {
		return Info{Name: filepath.Base(p), Size: int64(len(data))}, nil
	}
	return Info{}, notExist("stat", path)
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	p := clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, isFile := m.files[p]
	_, isDir := m.dirs[p]
	return isFile || isDir, nil
}

// Calls returns a snapshot of the call counters.
func (m *Memory) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Snapshot returns a copy of every file (path -> content).
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.files))
	for k, v := range m.files {
		out[k] = string(v)
	}
	return out
}
