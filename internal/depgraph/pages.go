package depgraph

// CollectionKeyPrefix prefixes synthetic dependency keys for collections.
const CollectionKeyPrefix = "collection:"

// CollectionKey returns the dependency key for a named collection.
func CollectionKey(name string) string {
	return CollectionKeyPrefix + name
}

// PageGraph records page -> dependency key edges. A key is either an
// absolute file path (an include or template) or a collection key.
type PageGraph struct {
	e edges
}

// NewPageGraph returns an empty page graph.
func NewPageGraph() *PageGraph {
	return &PageGraph{e: newEdges()}
}

// Record adds the edge page -> key.
func (g *PageGraph) Record(page, key string) {
	g.e.add(page, key)
}

// PagesAffectedBy returns the sorted pages with an edge to key.
func (g *PageGraph) PagesAffectedBy(key string) []string {
	return g.e.ownersOf(key)
}

// DependenciesOf returns the sorted keys page depends on.
func (g *PageGraph) DependenciesOf(page string) []string {
	return g.e.depsOf(page)
}

// ClearPage removes all outgoing edges of page.
func (g *PageGraph) ClearPage(page string) {
	g.e.clearOwner(page)
}

// RemoveDependencyKey removes key and every edge pointing at it.
func (g *PageGraph) RemoveDependencyKey(key string) {
	g.e.removeDep(key)
}

// RemovePage clears page both as an owner and as a dependency key.
func (g *PageGraph) RemovePage(page string) {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	g.e.clearOwnerLocked(page)
	g.e.removeDepLocked(page)
}

// Size returns the number of pages with edges and of distinct keys.
func (g *PageGraph) Size() (pages, keys int) {
	return g.e.size()
}
