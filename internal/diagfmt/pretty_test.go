package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"bindforge/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag()
	r := diag.BagReporter{Bag: bag}
	diag.ReportError(r, diag.MapUnknownCallingConvention,
		diag.Location{File: "/home/user/lib/include/api.h", Line: 3, Column: 6},
		"function odd: unknown calling convention \"vectorcall\"; declaration dropped").
		WithPlatform("x86_64-unknown-linux-gnu").
		Emit()
	diag.ReportWarning(r, diag.DivLayout, diag.Location{File: "/home/user/lib/include/api.h", Line: 9, Column: 8},
		"record item differs across platforms").
		WithNote(diag.Location{}, "x86_64-pc-windows-msvc: size 12\nx86_64-unknown-linux-gnu: size 16").
		Emit()
	diag.ReportInfo(r, diag.CmpUnavailable, diag.Location{}, "generated code was not verified").Emit()
	return bag
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	opts := PrettyOpts{PathMode: PathModeRelative, BaseDir: "/home/user/lib", ShowNotes: true}
	if err := Pretty(&buf, sampleBag(), opts); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := `include/api.h:3:6: ERROR MAP4001: function odd: unknown calling convention "vectorcall"; declaration dropped [x86_64-unknown-linux-gnu]
include/api.h:9:8: WARNING DIV3001: record item differs across platforms
  note: x86_64-pc-windows-msvc: size 12
    x86_64-unknown-linux-gnu: size 16
<unknown>: INFO CMP6002: generated code was not verified
`
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyPathModes(t *testing.T) {
	tests := []struct {
		name string
		mode PathMode
		want string
	}{
		{"absolute", PathModeAbsolute, "/home/user/lib/include/api.h:3:6"},
		{"relative", PathModeRelative, "include/api.h:3:6"},
		{"basename", PathModeBasename, "api.h:3:6"},
		{"auto outside base", PathModeAuto, "/home/user/lib/include/api.h:3:6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := "/home/user/lib"
			if tt.mode == PathModeAuto {
				base = "/elsewhere"
			}
			var buf bytes.Buffer
			if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: tt.mode, BaseDir: base}); err != nil {
				t.Fatalf("Pretty: %v", err)
			}
			first := strings.SplitN(buf.String(), "\n", 2)[0]
			if !strings.HasPrefix(first, tt.want+": ") {
				t.Fatalf("first line %q does not start with %q", first, tt.want)
			}
		})
	}
}

func TestPrettyHidesNotesAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: PathModeBasename, Width: 20}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "note:") {
		t.Fatalf("notes shown without ShowNotes:\n%s", out)
	}
	if !strings.Contains(out, "MAP4001: function odd: unk... [x86_64") {
		t.Fatalf("message not truncated to 20 cells:\n%s", out)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Color: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI sequences with Color on")
	}
}
