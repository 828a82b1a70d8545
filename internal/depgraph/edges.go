// Package depgraph holds the reverse-lookup graphs used for incremental
// rebuilds: pages to the files and collections they read, and stylesheet
// entries to the files they import.
//
// Both graphs keep two explicit maps of sets (forward and reverse). Owners
// clear their edges before rebuilding them; no edge outlives the render or
// compile that asserted it.
package depgraph

import (
	"sync"

	"git.home.luguber.info/inful/satsuma/internal/util/sets"
)

// edges is the forward/reverse core shared by both graphs.
// owner -> deps, dep -> owners.
type edges struct {
	mu      sync.RWMutex
	forward map[string]sets.Set[string]
	reverse map[string]sets.Set[string]
}

func newEdges() edges {
	return edges{
		forward: make(map[string]sets.Set[string]),
		reverse: make(map[string]sets.Set[string]),
	}
}

func (e *edges) add(owner, dep string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fw, ok := e.forward[owner]
	if !ok {
		fw = sets.New[string]()
		e.forward[owner] = fw
	}
	fw.Add(dep)
	rv, ok := e.reverse[dep]
	if !ok {
		rv = sets.New[string]()
		e.reverse[dep] = rv
	}
	rv.Add(owner)
}

func (e *edges) ownersOf(dep string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sets.Sorted(e.reverse[dep])
}

func (e *edges) depsOf(owner string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sets.Sorted(e.forward[owner])
}

// clearOwner drops every edge asserted by owner and prunes empty reverse sets.
func (e *edges) clearOwner(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearOwnerLocked(owner)
}

func (e *edges) clearOwnerLocked(owner string) {
	for dep := range e.forward[owner] {
		if rv, ok := e.reverse[dep]; ok {
			rv.Delete(owner)
			if rv.Len() == 0 {
				delete(e.reverse, dep)
			}
		}
	}
	delete(e.forward, owner)
}

// removeDep drops dep entirely and prunes empty forward sets.
func (e *edges) removeDep(dep string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeDepLocked(dep)
}

func (e *edges) removeDepLocked(dep string) {
	for owner := range e.reverse[dep] {
		if fw, ok := e.forward[owner]; ok {
			fw.Delete(dep)
			if fw.Len() == 0 {
				delete(e.forward, owner)
			}
		}
	}
	delete(e.reverse, dep)
}

func (e *edges) size() (owners, deps int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.forward), len(e.reverse)
}
