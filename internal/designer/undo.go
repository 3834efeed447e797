package designer

import "github.com/a3tai/mcp-pdf-forms/internal/form"

type actionKind int

const (
	actionAdd actionKind = iota
	actionRemove
	actionUpdate
	actionImport
)

// action records how to revert one field list change. For remove and
// update, field holds the value before the change; an import added count
// fields starting at index.
type action struct {
	kind  actionKind
	index int
	count int
	field form.Field
}

// Undo reverts the most recent add, remove, update or import. It reports whether
// there was anything to revert.
func (d *Designer) Undo() bool {
	if len(d.undo) == 0 {
		return false
	}

	last := len(d.undo) - 1
	a := d.undo[last]
	d.undo = d.undo[:last]

	switch a.kind {
	case actionAdd:
		d.fields = append(d.fields[:a.index:a.index], d.fields[a.index+1:]...)
	case actionRemove:
		d.fields = append(d.fields[:a.index:a.index], append([]form.Field{a.field}, d.fields[a.index:]...)...)
	case actionUpdate:
		d.fields[a.index] = a.field
	case actionImport:
		d.fields = append(d.fields[:a.index:a.index], d.fields[a.index+a.count:]...)
	}
	return true
}
