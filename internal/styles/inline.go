package styles

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/util/sets"
)

// Inliner is the built-in compiler used when no Dart Sass binary is
// available. It inlines @import, @use and @forward targets, substitutes
// top-level $variables and drops // comments. Nesting, mixins and functions
// are passed through untouched.
type Inliner struct{}

// NewInliner returns the built-in compiler.
func NewInliner() *Inliner { return &Inliner{} }

// Name identifies the compiler in logs.
func (*Inliner) Name() string { return "inliner" }

var (
	loadRule     = regexp.MustCompile(`^\s*@(import|use|forward)\s+(.+?)\s*;\s*$`)
	quoted       = regexp.MustCompile(`["']([^"']+)["']`)
	variableDecl = regexp.MustCompile(`^\s*\$([\w-]+)\s*:\s*(.+?)\s*(!default)?\s*;\s*$`)
	variableRef  = regexp.MustCompile(`\$([\w-]+)`)
	namespaced   = regexp.MustCompile(`[\w-]+\.\$`)
)

// Compile implements Compiler.
func (in *Inliner) Compile(_ context.Context, entry string, src []byte, resolver *Resolver) (Output, error) {
	if strings.EqualFold(filepath.Ext(entry), ".sass") {
		return Output{}, fmt.Errorf("indented syntax needs the dart-sass compiler: %s", entry)
	}
	st := &inlineState{resolver: resolver, seen: sets.New(entry), sources: []string{entry}}
	var lines []string
	if err := st.expand(entry, string(src), &lines, 0); err != nil {
		return Output{}, err
	}
	css := substitute(lines)
	sm, err := sourceMap(entry, st.sources)
	if err != nil {
		return Output{}, err
	}
	return Output{CSS: css, SourceMap: sm}, nil
}

type inlineState struct {
	resolver *Resolver
	seen     sets.Set[string]
	sources  []string
}

func (st *inlineState) expand(file, src string, out *[]string, depth int) error {
	if depth > 32 {
		return fmt.Errorf("import depth exceeded at %s", file)
	}
	inBlock := false
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		line, inBlock = stripLineComment(line, inBlock)
		m := loadRule.FindStringSubmatch(line)
		if m == nil {
			*out = append(*out, line)
			continue
		}
		refs := quoted.FindAllStringSubmatch(m[2], -1)
		if len(refs) == 0 {
			*out = append(*out, line)
			continue
		}
		for _, ref := range refs {
			target := ref[1]
			if strings.HasPrefix(target, "sass:") {
				continue
			}
			if isExternal(target) {
				*out = append(*out, fmt.Sprintf("@import %q;", target))
				continue
			}
			resolved, ok := st.resolver.Resolve(filepath.Dir(file), target)
			if !ok {
				return fmt.Errorf("%s: cannot resolve import %q", file, target)
			}
			if st.seen.Has(resolved) {
				continue
			}
			st.seen.Add(resolved)
			st.sources = append(st.sources, resolved)
			data, err := st.resolver.fs.ReadFile(st.resolver.ctx, resolved)
			if err != nil {
				return err
			}
			if err := st.expand(resolved, string(data), out, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// stripLineComment cuts a // comment from line. Quoted strings, url(...)
// arguments and /* */ comments are skipped; inBlock carries an open block
// comment across lines.
func stripLineComment(line string, inBlock bool) (string, bool) {
	var quote byte
	inURL := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inBlock:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inBlock = false
				i++
			}
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case inURL:
			if c == ')' {
				inURL = false
			} else if c == '"' || c == '\'' {
				quote = c
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inBlock = true
			i++
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i], false
		case (c == 'u' || c == 'U') && strings.EqualFold(line[i:min(i+4, len(line))], "url(") && !identByte(line, i-1):
			inURL = true
			i += 3
		}
	}
	return line, inBlock
}

func identByte(s string, i int) bool {
	if i < 0 {
		return false
	}
	c := s[i]
	return c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "url(")
}

// substitute resolves $variables in declaration order and drops the declarations.
func substitute(lines []string) string {
	vars := map[string]string{}
	var b strings.Builder
	for _, line := range lines {
		if m := variableDecl.FindStringSubmatch(line); m != nil {
			if _, exists := vars[m[1]]; exists && m[3] != "" {
				continue
			}
			vars[m[1]] = replaceVars(m[2], vars)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(replaceVars(line, vars))
		b.WriteByte('\n')
	}
	return b.String()
}

func replaceVars(s string, vars map[string]string) string {
	s = namespaced.ReplaceAllString(s, "$$")
	return variableRef.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := vars[ref[1:]]; ok {
			return v
		}
		return ref
	})
}

// sourceMap lists the inlined files without segment mappings.
func sourceMap(entry string, sources []string) (string, error) {
	rel := make([]string, 0, len(sources))
	for _, s := range sources {
		if r, err := filepath.Rel(filepath.Dir(entry), s); err == nil {
			rel = append(rel, filepath.ToSlash(r))
		} else {
			rel = append(rel, filepath.ToSlash(s))
		}
	}
	data, err := json.Marshal(map[string]any{
		"version":  3,
		"file":     strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry)) + ".css",
		"sources":  rel,
		"names":    []string{},
		"mappings": "",
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
