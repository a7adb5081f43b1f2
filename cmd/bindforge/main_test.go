package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"bindforge/internal/config"
	"bindforge/internal/emit"
)

func TestParseUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
		fail  bool
	}{
		{"", uiAuto, false},
		{"auto", uiAuto, false},
		{" ON ", uiOn, false},
		{"off", uiOff, false},
		{"sometimes", uiAuto, true},
	}
	for _, tc := range cases {
		got, err := parseUIMode(tc.input)
		if (err != nil) != tc.fail || got != tc.want {
			t.Fatalf("parseUIMode(%q) = %v, %v; want %v (fail=%v)", tc.input, got, err, tc.want, tc.fail)
		}
	}
}

func TestProgressViewExplicitModes(t *testing.T) {
	if !uiOn.progressView(true, true) {
		t.Fatalf("--ui on must win over --quiet")
	}
	if uiOff.progressView(false, false) {
		t.Fatalf("--ui off must disable the view")
	}
	if uiAuto.progressView(false, true) {
		t.Fatalf("auto mode must not mix the view with machine output")
	}
}

func TestWriteDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "generated")
	docs := []emit.Document{
		{FileName: "Native.g.cs", Code: "public static class Native {}\n"},
		{FileName: "Runtime.g.cs", Code: "namespace Interop.Runtime;\n"},
	}
	written, err := writeDocuments(dir, docs)
	if err != nil {
		t.Fatalf("writeDocuments: %v", err)
	}
	if strings.Join(written, ",") != "Native.g.cs,Runtime.g.cs" {
		t.Fatalf("written = %v", written)
	}
	for _, doc := range docs {
		data, err := os.ReadFile(filepath.Join(dir, doc.FileName))
		if err != nil {
			t.Fatalf("read %s: %v", doc.FileName, err)
		}
		if string(data) != doc.Code {
			t.Fatalf("%s = %q", doc.FileName, data)
		}
	}
}

func TestWriteDocumentsRejectsPaths(t *testing.T) {
	_, err := writeDocuments(t.TempDir(), []emit.Document{{FileName: "../escape.cs"}})
	if err == nil {
		t.Fatalf("expected error for a file name with a directory")
	}
}

func TestDefaultConfigLoads(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, config.FileName)
	if err := os.WriteFile(path, []byte(buildDefaultConfig("zlib", "x86_64-pc-windows-msvc")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bindings.Library != "zlib" || !cfg.Bindings.GenerateRuntime {
		t.Fatalf("bindings = %+v", cfg.Bindings)
	}
	if len(cfg.Platforms) != 1 || cfg.Platforms[0].Triple != "x86_64-pc-windows-msvc" {
		t.Fatalf("platforms = %+v", cfg.Platforms)
	}
	if want := filepath.Join(root, "ast", "x86_64-pc-windows-msvc.json"); cfg.Platforms[0].AST != want {
		t.Fatalf("ast = %q, want %q", cfg.Platforms[0].AST, want)
	}
	if want := filepath.Join(root, "generated"); cfg.Output.Dir != want {
		t.Fatalf("output = %q, want %q", cfg.Output.Dir, want)
	}
}

func TestLibraryFromDir(t *testing.T) {
	if got := libraryFromDir("/work/sqlite3"); got != "sqlite3" {
		t.Fatalf("libraryFromDir = %q", got)
	}
	if got := libraryFromDir(string(filepath.Separator)); got != "native" {
		t.Fatalf("libraryFromDir(root) = %q", got)
	}
}

func TestApplyGenerateFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "generate"}
	registerGenerateFlags(cmd)
	for name, value := range map[string]string{
		"out":       "/tmp/bindings",
		"jobs":      "3",
		"no-cache":  "true",
		"no-verify": "true",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	cfg := config.Default()
	cfg.Run.Jobs = 1
	cfg.Verify.Command = []string{"dotnet", "build"}
	cfg.Platforms = []config.Platform{{Triple: "x86_64-unknown-linux-gnu", AST: "linux.json"}}

	if err := applyGenerateFlags(cmd, &cfg); err != nil {
		t.Fatalf("applyGenerateFlags: %v", err)
	}
	if cfg.Output.Dir != "/tmp/bindings" || cfg.Run.Jobs != 3 || cfg.Run.Cache || cfg.Verify.Command != nil {
		t.Fatalf("cfg = %+v", cfg)
	}

	cmd = &cobra.Command{Use: "generate"}
	registerGenerateFlags(cmd)
	if err := cmd.Flags().Set("jobs", "-2"); err != nil {
		t.Fatal(err)
	}
	if err := applyGenerateFlags(cmd, &cfg); err == nil {
		t.Fatalf("negative jobs must fail validation")
	}
}
