// Package app implements the ticketing engine: event creation, purchase,
// transfer, redemption, and cancellation, with every mutating operation
// executed as a single registry transaction.
//
// Known gap: cancelling an event does not refund already-sold tickets.
// Settlement of cancelled events is an unimplemented extension, not something
// CancelEvent quietly approximates.
package app
