package service

import "strings"

// Field names used in update diffs, in evaluation order.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPriority    = "priority"
	fieldStatus      = "status"
	fieldDueDate     = "dueDate"
	fieldProject     = "project"
	fieldAssignee    = "assignee"
)

// change is one field-level difference between a resource's prior and new
// state.
type change struct {
	field   string
	from    string
	to      string
	summary string
}

// diff accumulates changes in field evaluation order, which is also the
// order their summaries appear in the activity description.
type diff struct {
	changes []change
}

func (d *diff) record(field, from, to, summary string) {
	d.changes = append(d.changes, change{field: field, from: from, to: to, summary: summary})
}

func (d *diff) empty() bool {
	return len(d.changes) == 0
}

// beyond reports whether any change touches a field other than the given
// one.
func (d *diff) beyond(field string) bool {
	for _, c := range d.changes {
		if c.field != field {
			return true
		}
	}
	return false
}

// summary concatenates the per-change descriptions in evaluation order.
func (d *diff) summary() string {
	var b strings.Builder
	for _, c := range d.changes {
		b.WriteString(c.summary)
	}
	return strings.TrimSpace(b.String())
}
