// Package observ measures pipeline stages. A Timer is safe for concurrent
// use, so per-platform stages running in parallel may record spans too.
package observ

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Span is one measured stage.
type Span struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
	open  bool
}

// Timer collects spans in the order they were begun.
type Timer struct {
	mu    sync.Mutex
	spans []Span
	now   func() time.Time
}

// NewTimer returns an empty timer.
func NewTimer() *Timer { return &Timer{spans: make([]Span, 0, 8), now: time.Now} }

// Begin opens a span and returns its handle for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, Span{Name: name, Start: t.now(), open: true})
	return len(t.spans) - 1
}

// End closes the span. Unknown or already closed handles are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.spans) || !t.spans[idx].open {
		return
	}
	s := &t.spans[idx]
	s.Dur = t.now().Sub(s.Start)
	s.Note = note
	s.open = false
}

// SpanReport is the serialized form of a closed span.
type SpanReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the JSON-ready view of a timer. Open spans are left out.
type Report struct {
	TotalMS float64      `json:"total_ms"`
	Phases  []SpanReport `json:"phases"`
}

// Report snapshots every closed span.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]SpanReport, 0, len(t.spans))}
	var total time.Duration
	for _, s := range t.spans {
		if s.open {
			continue
		}
		total += s.Dur
		report.Phases = append(report.Phases, SpanReport{
			Name:       s.Name,
			DurationMS: millis(s.Dur),
			Note:       s.Note,
		})
	}
	report.TotalMS = millis(total)
	return report
}

// Slowest returns up to n closed spans, longest first.
func (r Report) Slowest(n int) []SpanReport {
	out := append([]SpanReport(nil), r.Phases...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DurationMS > out[j].DurationMS })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// WriteTo prints the report as an aligned table.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		k, err := fmt.Fprintf(w, format, args...)
		n += int64(k)
		return err
	}
	if err := write("timings:\n"); err != nil {
		return n, err
	}
	for _, p := range r.Phases {
		if err := write("  %-10s %9.2f ms", p.Name, p.DurationMS); err != nil {
			return n, err
		}
		if p.Note != "" {
			if err := write("  %s", p.Note); err != nil {
				return n, err
			}
		}
		if err := write("\n"); err != nil {
			return n, err
		}
	}
	err := write("  %-10s %9.2f ms\n", "total", r.TotalMS)
	return n, err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
