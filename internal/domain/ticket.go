package domain

import "time"

// Ticket is a single admission unit. IDs are issued from one sequence shared
// by all events. Owner changes on transfer; Used flips to true exactly once.
type Ticket struct {
	ID          int64
	EventID     int64
	Owner       string
	Used        bool
	PurchasedAt time.Time
}
