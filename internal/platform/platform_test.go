package platform

import "testing"

func TestParseDataModels(t *testing.T) {
	tests := []struct {
		triple     string
		os         string
		ptr        int
		long       int
		wchar      int
		int64Align int
	}{
		{"x86_64-unknown-linux-gnu", "linux", 8, 8, 4, 8},
		{"x86_64-pc-windows-msvc", "windows", 8, 4, 2, 8},
		{"aarch64-apple-darwin", "darwin", 8, 8, 4, 8},
		{"x86_64-apple-darwin21.6.0", "darwin", 8, 8, 4, 8},
		{"i686-unknown-linux-gnu", "linux", 4, 4, 4, 4},
		{"i686-pc-windows-msvc", "windows", 4, 4, 2, 8},
		{"aarch64-linux-android", "linux", 8, 8, 4, 8},
	}
	for _, tc := range tests {
		t.Run(tc.triple, func(t *testing.T) {
			p, err := Parse(tc.triple)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.triple, err)
			}
			if p.OS != tc.os {
				t.Errorf("os: got %q, want %q", p.OS, tc.os)
			}
			if p.PtrSize != tc.ptr || p.LongSize != tc.long || p.WCharSize != tc.wchar || p.Int64Align != tc.int64Align {
				t.Errorf("data model: got ptr=%d long=%d wchar=%d i64align=%d", p.PtrSize, p.LongSize, p.WCharSize, p.Int64Align)
			}
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, triple := range []string{"", "x86_64", "sparc-sun-solaris", "x86_64-unknown-plan9"} {
		if _, err := Parse(triple); err == nil {
			t.Errorf("Parse(%q): expected error", triple)
		}
	}
}

func TestScalarFollowsDataModel(t *testing.T) {
	win := MustParse("x86_64-pc-windows-msvc")
	linux := MustParse("x86_64-unknown-linux-gnu")
	if l, _ := win.Scalar("unsigned long"); l.Size != 4 {
		t.Fatalf("windows unsigned long size = %d, want 4", l.Size)
	}
	if l, _ := linux.Scalar("unsigned long"); l.Size != 8 {
		t.Fatalf("linux unsigned long size = %d, want 8", l.Size)
	}
	if _, ok := linux.Scalar("long double"); ok {
		t.Fatal("long double must not have a guessed layout")
	}
}
