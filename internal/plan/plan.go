// Package plan turns build state into lazy sequences of actions.
//
// Planners read the filesystem and update graph bookkeeping but never write
// outputs; the committer applies what they yield. Every output path is checked
// for containment inside the public root before an action is yielded, and
// violations are logged and dropped.
package plan

import (
	"iter"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/safepath"
	"git.home.luguber.info/inful/satsuma/internal/site"
)

// Plan is a finite, single-use lazy sequence of actions. A non-nil error ends
// the sequence.
type Plan = iter.Seq2[action.Action, error]

// Empty yields nothing.
func Empty() Plan {
	return func(func(action.Action, error) bool) {}
}

// Of yields the given actions, already planned, after the containment check.
func Of(st *site.State, actions ...action.Action) Plan {
	return func(yield func(action.Action, error) bool) {
		for _, a := range actions {
			if !emit(st, yield, a) {
				return
			}
		}
	}
}

// Concat yields each plan in turn.
func Concat(plans ...Plan) Plan {
	return func(yield func(action.Action, error) bool) {
		for _, p := range plans {
			for a, err := range p {
				if !yield(a, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

// Collect drains a plan into a slice. Intended for tests and small plans.
func Collect(p Plan) ([]action.Action, error) {
	var out []action.Action
	for a, err := range p {
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// emit yields a after the containment check. It returns false when the
// consumer stopped.
func emit(st *site.State, yield func(action.Action, error) bool, a action.Action) bool {
	if err := safepath.Check(st.Layout.PublicDir, a.Output); err != nil {
		st.Logger.Warn("Skipping action outside public directory",
			logfields.Action(string(a.Kind)), logfields.Output(a.Output), logfields.Error(err))
		return true
	}
	return yield(a, nil)
}

// fail yields err as the terminal element.
func fail(yield func(action.Action, error) bool, err error) {
	yield(action.Action{}, err)
}
