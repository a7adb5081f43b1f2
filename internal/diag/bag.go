package diag

import (
	"sort"
	"sync"
)

// Bag is the append-only diagnostics sink shared by every stage of a run.
// It is safe for concurrent Add; diagnostics are never dropped.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
}

func NewBag() *Bag {
	return &Bag{items: make([]Diagnostic, 0, 16)}
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.mu.Lock()
	b.items = append(b.items, d)
	b.mu.Unlock()
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	return b.countAtLeast(SevError) > 0
}

// HasWarnings возвращает true, если есть хотя бы одна диагностика с Severity >= Warning
func (b *Bag) HasWarnings() bool {
	return b.countAtLeast(SevWarning) > 0
}

// HasPanics reports whether an internal fault was recorded.
func (b *Bag) HasPanics() bool {
	return b.countAtLeast(SevPanic) > 0
}

func (b *Bag) countAtLeast(sev Severity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= sev {
			n++
		}
	}
	return n
}

// Count returns the number of diagnostics with exactly the given severity.
func (b *Bag) Count(sev Severity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].Severity == sev {
			n++
		}
	}
	return n
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a snapshot of the collected diagnostics.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// WithCode returns the diagnostics carrying the given code.
func (b *Bag) WithCode(code Code) []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Diagnostic
	for _, d := range b.items {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Merge appends every diagnostic of other.
func (b *Bag) Merge(other *Bag) {
	if other == nil || other == b {
		return
	}
	items := other.Items()
	b.mu.Lock()
	b.items = append(b.items, items...)
	b.mu.Unlock()
}

// Sort orders diagnostics by file, line, column, severity (desc), code, platform
// so output does not depend on the order concurrent loaders finished in.
func (b *Bag) Sort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Location.File != dj.Location.File {
			return di.Location.File < dj.Location.File
		}
		if di.Location.Line != dj.Location.Line {
			return di.Location.Line < dj.Location.Line
		}
		if di.Location.Column != dj.Location.Column {
			return di.Location.Column < dj.Location.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		if di.Platform != dj.Platform {
			return di.Platform < dj.Platform
		}
		return di.Message < dj.Message
	})
}
