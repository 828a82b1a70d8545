package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"BuildKind", KeyBuildKind, "site", BuildKind("site")},
		{"Page", KeyPage, "/src/pages/a.tmpl", Page("/src/pages/a.tmpl")},
		{"Template", KeyTemplate, "post", Template("post")},
		{"Entry", KeyEntry, "main.scss", Entry("main.scss")},
		{"Output", KeyOutput, "/public/index.html", Output("/public/index.html")},
		{"Source", KeySource, "logo.png", Source("logo.png")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Event", KeyEvent, "change", Event("change")},
		{"Action", KeyAction, "write", Action("write")},
	}
	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Errorf("%s: key = %q, want %q", tc.name, tc.attr.Key, tc.attrKey)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Errorf("%s: value = %q, want %q", tc.name, tc.attr.Value.String(), tc.attrVal)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Changed(3); a.Key != KeyChanged || a.Value.Int64() != 3 {
		t.Errorf("Changed attr = %v", a)
	}
	if a := Count(7); a.Key != KeyCount || a.Value.Int64() != 7 {
		t.Errorf("Count attr = %v", a)
	}
	if a := Since(time.Now().Add(-time.Second)); a.Key != KeyDurationMS || a.Value.Float64() < 999 {
		t.Errorf("Since attr = %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("nil error should render empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Key != KeyError || a.Value.String() != "boom" {
		t.Errorf("Error attr = %v", a)
	}
}
