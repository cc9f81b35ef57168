package domain

import "time"

// Comment is an immutable entry in a ticket's append-only thread. Seq breaks
// CreatedAt ties by insertion order.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Content    string
	IsInternal bool
	Seq        int64
	CreatedAt  time.Time
}
