package depgraph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type edge struct {
	Page int
	Key  int
}

func genEdges() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(gen.IntRange(0, 5), gen.IntRange(0, 5)).Map(func(v []any) edge {
		return edge{Page: v[0].(int), Key: v[1].(int)}
	}))
}

func pageName(i int) string { return fmt.Sprintf("/p%d", i) }
func keyName(i int) string  { return fmt.Sprintf("/k%d", i) }

func TestPageGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("reverse index mirrors recorded edges", prop.ForAll(
		func(es []edge) bool {
			g := NewPageGraph()
			for _, e := range es {
				g.Record(pageName(e.Page), keyName(e.Key))
			}
			for k := 0; k <= 5; k++ {
				var want []string
				for p := 0; p <= 5; p++ {
					if slices.Contains(es, edge{Page: p, Key: k}) {
						want = append(want, pageName(p))
					}
				}
				got := g.PagesAffectedBy(keyName(k))
				if len(got) != len(want) || (len(want) > 0 && !slices.Equal(got, want)) {
					return false
				}
			}
			return true
		},
		genEdges(),
	))

	properties.Property("clearing a page leaves no edge behind", prop.ForAll(
		func(es []edge, victim int) bool {
			g := NewPageGraph()
			for _, e := range es {
				g.Record(pageName(e.Page), keyName(e.Key))
			}
			g.ClearPage(pageName(victim))
			if len(g.DependenciesOf(pageName(victim))) != 0 {
				return false
			}
			for k := 0; k <= 5; k++ {
				if slices.Contains(g.PagesAffectedBy(keyName(k)), pageName(victim)) {
					return false
				}
			}
			return true
		},
		genEdges(),
		gen.IntRange(0, 5),
	))

	properties.Property("clear then re-record restores the same answer", prop.ForAll(
		func(es []edge) bool {
			g := NewPageGraph()
			for _, e := range es {
				g.Record(pageName(e.Page), keyName(e.Key))
			}
			before := make([][]string, 6)
			for k := range before {
				before[k] = g.PagesAffectedBy(keyName(k))
			}
			for p := 0; p <= 5; p++ {
				g.ClearPage(pageName(p))
			}
			for _, e := range es {
				g.Record(pageName(e.Page), keyName(e.Key))
			}
			for k := range before {
				if !slices.Equal(before[k], g.PagesAffectedBy(keyName(k))) {
					return false
				}
			}
			return true
		},
		genEdges(),
	))

	properties.TestingRun(t)
}
