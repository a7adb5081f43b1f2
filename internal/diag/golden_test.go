package diag

import (
	"fmt"
	"sync"
	"testing"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	header := "include/lib.h"
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     DivLayout,
			Message:  "struct Point differs\nacross platforms",
			Location: Location{File: header, Line: 4, Column: 1},
			Notes: []Note{
				{Location: Location{File: header, Line: 5, Column: 3}, Msg: "field y"},
			},
		},
		{
			Severity: SevError,
			Code:     MapUnknownCallingConvention,
			Message:  "callback_t",
			Location: Location{File: header, Line: 9, Column: 1},
			Platform: "x86_64-pc-windows-msvc",
		},
	}

	expected := "warning DIV3001 include/lib.h:4:1 struct Point differs across platforms\n" +
		"note DIV3001 include/lib.h:5:3 field y\n" +
		"error MAP4001 include/lib.h:9:1 callback_t [x86_64-pc-windows-msvc]"

	if got := FormatGoldenDiagnostics(diags, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagConcurrentAddKeepsEverything(t *testing.T) {
	bag := NewBag()
	r := BagReporter{Bag: bag}

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			pr := PlatformReporter{Next: r, Platform: fmt.Sprintf("p%d", w)}
			for i := range perWorker {
				ReportInfo(pr, LoadInfo, Location{}, fmt.Sprintf("d%d", i)).Emit()
			}
		}(w)
	}
	wg.Wait()

	if got := bag.Len(); got != workers*perWorker {
		t.Fatalf("bag.Len() = %d, want %d", got, workers*perWorker)
	}
	for _, d := range bag.Items() {
		if d.Platform == "" {
			t.Fatalf("diagnostic lost its platform: %+v", d)
		}
	}
}

func TestSeverityAndStage(t *testing.T) {
	bag := NewBag()
	bag.Add(New(SevWarning, DivLayout, Location{}, "w"))
	if bag.HasErrors() {
		t.Fatal("warnings must not count as errors")
	}
	bag.Add(New(SevPanic, PanicInternal, Location{}, "boom"))
	if !bag.HasErrors() || !bag.HasPanics() {
		t.Fatal("panic must count as error and panic")
	}
	if got := MapVariadicSkipped.Stage(); got != StageMap {
		t.Fatalf("MapVariadicSkipped.Stage() = %q, want %q", got, StageMap)
	}
	if got := LayoutRecursive.ID(); got != "LAY2002" {
		t.Fatalf("LayoutRecursive.ID() = %q", got)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		word string
		want Severity
		ok   bool
	}{
		{"error", SevError, true},
		{" Warning", SevWarning, true},
		{"INFO", SevInfo, true},
		{"PANIC", SevPanic, true},
		{"hint", SevInfo, false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.word)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v, %v", tc.word, got, ok, tc.want, tc.ok)
		}
	}
	if got := Severity(42).String(); got != "UNKNOWN" {
		t.Errorf("Severity(42).String() = %q", got)
	}
}
