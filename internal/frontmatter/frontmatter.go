// Package frontmatter separates a page's leading configuration block from its body.
//
// Two block syntaxes are recognised: YAML front matter delimited by `---` lines,
// and an `@config … @config` block whose content is JSON-like data that may
// carry `//` and `/* */` comments.
package frontmatter

import (
	"bytes"
	"errors"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Syntax names the block syntax a document used.
type Syntax string

const (
	SyntaxNone      Syntax = ""
	SyntaxYAML      Syntax = "yaml"
	SyntaxDirective Syntax = "directive"
)

// ErrMissingClosingDelimiter indicates the document opened a configuration
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("configuration block start delimiter found but closing delimiter is missing")

// Split separates the configuration block from the body. When the document
// has no block, syntax is SyntaxNone and body is the full input.
func Split(content []byte) (block []byte, body []byte, syntax Syntax, err error) {
	if b, rest, ok, err := splitYAML(content); ok || err != nil {
		return b, rest, SyntaxYAML, err
	}
	if b, rest, ok := splitDirective(content); ok {
		return b, rest, SyntaxDirective, nil
	}
	return nil, content, SyntaxNone, nil
}

func newline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func splitYAML(content []byte) ([]byte, []byte, bool, error) {
	nl := newline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, nil, false, nil
	}
	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}
	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// a closing delimiter at EOF without trailing newline
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			return content[start : len(content)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], true, nil
}

var directivePattern = regexp.MustCompile(`(?s)\A\s*@config\s*(.*?)\s*@config`)

// splitDirective extracts a leading @config block. Only whitespace may
// precede it; a block mentioned later in the page is body text.
func splitDirective(content []byte) ([]byte, []byte, bool) {
	loc := directivePattern.FindSubmatchIndex(content)
	if loc == nil {
		return nil, nil, false
	}
	return content[loc[2]:loc[3]], bytes.TrimLeft(content[loc[1]:], "\r\n"), true
}

// StripComments removes `/* */` and `//` comments outside quoted strings.
// A `//` preceded by a colon is kept so bare URLs survive.
func StripComments(src []byte) []byte {
	out := make([]byte, 0, len(src))
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			out = append(out, c)
			if c == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			out = append(out, c)
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				return out
			}
			i += end + 3
		case c == '/' && i+1 < len(src) && src[i+1] == '/' && (i == 0 || src[i-1] != ':'):
			nl := bytes.IndexByte(src[i:], '\n')
			if nl < 0 {
				return out
			}
			i += nl - 1
		default:
			out = append(out, c)
		}
	}
	return out
}

// Parse decodes a configuration block of the given syntax into a map.
// Directive blocks are JSON-like; YAML accepts them once comments are gone.
func Parse(block []byte, syntax Syntax) (map[string]any, error) {
	if syntax == SyntaxDirective {
		block = StripComments(block)
	}
	if len(bytes.TrimSpace(block)) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Extract splits and parses in one step. On a parse error the block is still
// stripped from body and fields is empty.
func Extract(content []byte) (fields map[string]any, body []byte, err error) {
	block, body, syntax, err := Split(content)
	if err != nil {
		return map[string]any{}, content, err
	}
	if syntax == SyntaxNone {
		return map[string]any{}, body, nil
	}
	fields, err = Parse(block, syntax)
	if err != nil {
		return map[string]any{}, body, err
	}
	return fields, body, nil
}
