// Package action describes planned filesystem effects. Actions are plain data;
// nothing happens until a committer applies them.
package action

// Kind is the effect an Action has on its output.
type Kind string

const (
	KindWrite  Kind = "write"
	KindCopy   Kind = "copy"
	KindRemove Kind = "remove"
)

// Meta carries optional descriptive data for logging.
type Meta struct {
	// Label is logged at info when the action changes its output.
	Label string
	// Unit is the page or stylesheet entry the action was planned for.
	Unit string
}

// Action is one desired filesystem effect.
type Action struct {
	Kind    Kind
	Output  string
	Source  string
	Content []byte
	Meta    Meta
}

// Write creates an action writing content to output.
func Write(output string, content []byte, meta Meta) Action {
	return Action{Kind: KindWrite, Output: output, Content: content, Meta: meta}
}

// Copy creates an action copying source to output.
func Copy(source, output string, meta Meta) Action {
	return Action{Kind: KindCopy, Source: source, Output: output, Meta: meta}
}

// Remove creates an action deleting output recursively.
func Remove(output string, meta Meta) Action {
	return Action{Kind: KindRemove, Output: output, Meta: meta}
}

// IsRemoval reports whether the action deletes its output.
func (a Action) IsRemoval() bool { return a.Kind == KindRemove }

// String returns a short description for logs.
func (a Action) String() string {
	if a.Kind == KindCopy {
		return string(a.Kind) + " " + a.Source + " -> " + a.Output
	}
	return string(a.Kind) + " " + a.Output
}
