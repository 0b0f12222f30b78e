// Package types holds the shared CRM data structures used across the
// application: customers, their opportunities and the listing parameters.
// Handlers, storage backends and the API client all import types without
// depending on each other.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a client account. ID and Created are assigned by storage on
// insert and never change afterwards.
type Customer struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"    validate:"min=3,max=300"`
	Email   string    `json:"email"   validate:"required,email"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// OpportunityStatus is the user-assigned state of an opportunity. It drives
// no transitions; any value outside the three constants fails validation.
type OpportunityStatus string

const (
	StatusNew        OpportunityStatus = "New"
	StatusClosedWon  OpportunityStatus = "ClosedWon"
	StatusClosedLost OpportunityStatus = "ClosedLost"
)

// Valid reports whether s is one of the known statuses.
func (s OpportunityStatus) Valid() bool {
	switch s {
	case StatusNew, StatusClosedWon, StatusClosedLost:
		return true
	}
	return false
}

// Opportunity is a sales lead owned by exactly one customer.
//
// An ID equal to uuid.Nil marks an opportunity that has not been persisted
// yet; clients use it to choose between create and update.
type Opportunity struct {
	ID      uuid.UUID         `json:"id"`
	Name    string            `json:"name"    validate:"min=3,max=300"`
	Status  OpportunityStatus `json:"status"  validate:"oneof=New ClosedWon ClosedLost"`
	Created time.Time         `json:"created"`
}

// IsDraft reports whether the opportunity has not been stored yet.
func (o Opportunity) IsDraft() bool {
	return o.ID == uuid.Nil
}
