package domain

import "time"

// Event is a ticketed event with a fixed supply. Total is immutable after
// creation; Available only ever decreases. Active flips to false exactly once,
// on cancellation, and never back.
type Event struct {
	ID        int64
	Name      string
	StartsAt  time.Time
	Price     int64
	Total     int
	Available int
	Organizer string
	Active    bool
	CreatedAt time.Time
}
