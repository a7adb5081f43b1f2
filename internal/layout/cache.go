package layout

import "sort"

// Table holds the layouts calculated so far for one platform, keyed by record
// name, together with the records that failed.
type Table struct {
	byName map[string]Info
	failed map[string]*LayoutError
}

func NewTable() *Table {
	return &Table{
		byName: make(map[string]Info, 64),
		failed: make(map[string]*LayoutError),
	}
}

func (t *Table) Get(name string) (Info, bool) {
	if t == nil {
		return Info{}, false
	}
	l, ok := t.byName[name]
	return l, ok
}

func (t *Table) Put(name string, info Info) {
	if t == nil {
		return
	}
	delete(t.failed, name)
	t.byName[name] = info
}

// Fail records that name has no layout and why.
func (t *Table) Fail(name string, err *LayoutError) {
	if t == nil {
		return
	}
	delete(t.byName, name)
	t.failed[name] = err
}

// Failed returns the error recorded for name, if any.
func (t *Table) Failed(name string) (*LayoutError, bool) {
	if t == nil {
		return nil, false
	}
	err, ok := t.failed[name]
	return err, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

// Names returns the calculated record names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
