package depgraph

import (
	"sync"

	"git.home.luguber.info/inful/satsuma/internal/util/sets"
)

// ImportGraph records importedFile -> entry edges for stylesheets and keeps
// the registry of known entries and their compiled output paths.
type ImportGraph struct {
	e edges

	mu      sync.RWMutex
	outputs map[string]string
}

// NewImportGraph returns an empty import graph.
func NewImportGraph() *ImportGraph {
	return &ImportGraph{e: newEdges(), outputs: make(map[string]string)}
}

// Record ties a resolved import to the entry currently compiling.
func (g *ImportGraph) Record(imported, entry string) {
	g.e.add(entry, imported)
}

// EntriesAffectedBy returns the sorted entries depending on file. Callers
// fall back to all entries when the result is empty.
func (g *ImportGraph) EntriesAffectedBy(file string) []string {
	return g.e.ownersOf(file)
}

// ImportsOf returns the sorted files imported by entry during its last compile.
func (g *ImportGraph) ImportsOf(entry string) []string {
	return g.e.depsOf(entry)
}

// ClearBy drops every edge asserted by entry.
func (g *ImportGraph) ClearBy(entry string) {
	g.e.clearOwner(entry)
}

// Remove drops file and its reverse linkage. Used when a partial is unlinked.
func (g *ImportGraph) Remove(file string) {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	g.e.removeDepLocked(file)
	g.e.clearOwnerLocked(file)
}

// Register records the compiled output path of entry.
func (g *ImportGraph) Register(entry, output string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[entry] = output
}

// Unregister forgets entry and its edges.
func (g *ImportGraph) Unregister(entry string) {
	g.mu.Lock()
	delete(g.outputs, entry)
	g.mu.Unlock()
	g.e.clearOwner(entry)
}

// Output returns the registered output path of entry.
func (g *ImportGraph) Output(entry string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out, ok := g.outputs[entry]
	return out, ok
}

// Entries returns every registered entry in sorted order.
func (g *ImportGraph) Entries() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := sets.New[string]()
	for entry := range g.outputs {
		s.Add(entry)
	}
	return sets.Sorted(s)
}
