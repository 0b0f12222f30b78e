// Package storage defines the Storage interface: the contract any database
// backend must satisfy to serve the CRM API.
//
// Handlers depend only on this interface. Backends live in sub-packages
// (sqlite, bolt) and all pass the shared suite in storagetest.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record matches a lookup or a scoped
	// update. It is distinct from query execution failures.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidQuery is returned when listing parameters fall outside
	// their closed sets and must not reach the query text.
	ErrInvalidQuery = errors.New("invalid listing parameters")
)

// Storage is the database contract.
type Storage interface {
	// ListCustomers returns one ordered page of customers. The result is
	// never nil.
	ListCustomers(ctx context.Context, q types.CustomersQuery) ([]types.Customer, error)

	// GetCustomerByID returns ErrNotFound when no customer has the id.
	GetCustomerByID(ctx context.Context, id uuid.UUID) (types.Customer, error)

	// CreateCustomer assigns id and created time and stores the customer.
	CreateCustomer(ctx context.Context, c types.Customer) (types.Customer, error)

	// CountCustomers returns the number of stored customers.
	CountCustomers(ctx context.Context) (int, error)

	// ListOpportunities returns the customer's opportunities, newest
	// first. An unknown customer yields an empty slice.
	ListOpportunities(ctx context.Context, customerID uuid.UUID) ([]types.Opportunity, error)

	// CreateOpportunity attaches a new opportunity to the customer. The id
	// and created time of o are ignored and assigned here. Returns
	// ErrNotFound if the customer does not exist.
	CreateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) (types.Opportunity, error)

	// UpdateOpportunity sets name and status of the opportunity matched by
	// both customerID and o.ID. Returns ErrNotFound if nothing matched.
	UpdateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) error

	// DeleteOpportunity removes the opportunity matched by both ids. A
	// missing opportunity is not an error.
	DeleteOpportunity(ctx context.Context, customerID, opportunityID uuid.UUID) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
