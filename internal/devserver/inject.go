package devserver

import (
	"bytes"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// Inject inserts snippet before the first real </body> end tag of doc, or
// appends it when there is none. Tags inside scripts and comments do not count.
func Inject(doc []byte, snippet string) []byte {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset, at := 0, -1
	for at < 0 {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				at = offset
			}
		}
		offset += len(z.Raw())
	}
	if at < 0 {
		return append(append([]byte{}, doc...), snippet...)
	}
	out := make([]byte, 0, len(doc)+len(snippet))
	out = append(out, doc[:at]...)
	out = append(out, snippet...)
	return append(out, doc[at:]...)
}

// injector buffers HTML responses so the live-reload script can be added.
// Responses above maxSize pass through untouched.
type injector struct {
	http.ResponseWriter
	snippet       string
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	maxSize       int
}

func newInjector(w http.ResponseWriter, snippet string) *injector {
	return &injector{
		ResponseWriter: w,
		snippet:        snippet,
		statusCode:     http.StatusOK,
		maxSize:        2 * 1024 * 1024,
	}
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		contentType := l.ResponseWriter.Header().Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
			return l.ResponseWriter.Write(data)
		}
		l.buffer = make([]byte, 0, 64*1024)
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}
	if len(l.buffer)+len(data) > l.maxSize {
		l.passthrough = true
		l.ResponseWriter.Header().Del("Content-Length")
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
			return 0, err
		}
		return l.ResponseWriter.Write(data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

// finalize writes the buffered response with the snippet injected.
func (l *injector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}
	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(Inject(l.buffer, l.snippet))
}
