package styles

import (
	"context"

	"github.com/bep/godartsass/v2"
)

// DartSass compiles through an embedded Dart Sass process.
type DartSass struct {
	transpiler *godartsass.Transpiler
}

// NewDartSass starts the Dart Sass embedded binary. An empty binary lets
// godartsass look for sass on PATH.
func NewDartSass(binary string) (*DartSass, error) {
	t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: binary})
	if err != nil {
		return nil, err
	}
	return &DartSass{transpiler: t}, nil
}

// Compile implements Compiler.
func (d *DartSass) Compile(_ context.Context, entry string, src []byte, resolver *Resolver) (Output, error) {
	res, err := d.transpiler.Execute(godartsass.Args{
		Source:          string(src),
		URL:             fileURL(entry),
		SourceSyntax:    syntaxFor(entry),
		OutputStyle:     godartsass.OutputStyleExpanded,
		ImportResolver:  resolver,
		EnableSourceMap: true,
	})
	if err != nil {
		return Output{}, err
	}
	return Output{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the Dart Sass process.
func (d *DartSass) Close() error {
	return d.transpiler.Close()
}

// Name identifies the compiler in logs.
func (d *DartSass) Name() string { return "dart-sass" }
