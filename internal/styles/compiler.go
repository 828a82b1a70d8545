// Package styles compiles stylesheet entries and tracks which files each
// entry imported.
package styles

import (
	"context"
)

// Output is a compiled stylesheet.
type Output struct {
	CSS       string
	SourceMap string
}

// Compiler turns an entry stylesheet into CSS. Imports must be resolved
// through the given resolver so they are recorded.
type Compiler interface {
	Compile(ctx context.Context, entry string, src []byte, resolver *Resolver) (Output, error)
}

// Closer is implemented by compilers that hold external resources.
type Closer interface {
	Close() error
}
