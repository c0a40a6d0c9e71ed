package domain

import "time"

// Comment is a free-text note on a task. Only the author may delete it.
type Comment struct {
	ID        string
	TaskID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
