// Package storagetest provides a conformance suite that every
// storage.Storage implementation runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty storage. Cleanup should be registered on t.
type Factory func(t *testing.T) storage.Storage

// Run executes the suite, creating a new storage per subtest.
func Run(t *testing.T, newStorage Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"CustomerLifecycle", testCustomerLifecycle},
		{"CustomerNotFound", testCustomerNotFound},
		{"ListCustomersCreatedDesc", testListCustomersCreatedDesc},
		{"ListCustomersByName", testListCustomersByName},
		{"ListCustomersPaging", testListCustomersPaging},
		{"ListCustomersRejectsInvalidQuery", testListCustomersRejectsInvalidQuery},
		{"CreateOpportunity", testCreateOpportunity},
		{"CreateOpportunityUnknownCustomer", testCreateOpportunityUnknownCustomer},
		{"OpportunitiesNewestFirst", testOpportunitiesNewestFirst},
		{"OpportunitiesScopedByCustomer", testOpportunitiesScopedByCustomer},
		{"UpdateOpportunity", testUpdateOpportunity},
		{"UpdateOpportunityWrongCustomer", testUpdateOpportunityWrongCustomer},
		{"DeleteOpportunity", testDeleteOpportunity},
		{"DeleteMissingOpportunity", testDeleteMissingOpportunity},
		{"Ping", testPing},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStorage(t))
		})
	}
}

// CreateTestCustomer stores a valid customer named name.
func CreateTestCustomer(t *testing.T, s storage.Storage, name string) types.Customer {
	t.Helper()

	c, err := s.CreateCustomer(context.Background(), types.Customer{
		Name:   name,
		Email:  fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Status: "Active",
	})
	require.NoError(t, err)
	return c
}

// CreateTestOpportunity stores a New opportunity under customerID.
func CreateTestOpportunity(t *testing.T, s storage.Storage, customerID uuid.UUID, name string) types.Opportunity {
	t.Helper()

	o, err := s.CreateOpportunity(context.Background(), customerID, types.Opportunity{
		Name:   name,
		Status: types.StatusNew,
	})
	require.NoError(t, err)
	return o
}

func testCustomerLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	n, err := s.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	created, err := s.CreateCustomer(ctx, types.Customer{
		ID:     uuid.New(), // ignored
		Name:   "Acme Corp",
		Email:  "sales@example.com",
		Status: "Active",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.Created.IsZero())

	got, err := s.GetCustomerByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "sales@example.com", got.Email)
	assert.Equal(t, "Active", got.Status)
	assert.True(t, created.Created.Equal(got.Created), "created %v != stored %v", created.Created, got.Created)

	n, err = s.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testCustomerNotFound(t *testing.T, s storage.Storage) {
	CreateTestCustomer(t, s, "Someone Else")

	got, err := s.GetCustomerByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	assert.Equal(t, types.Customer{}, got)
}

func testListCustomersCreatedDesc(t *testing.T, s storage.Storage) {
	for _, name := range []string{"First", "Second", "Third"} {
		CreateTestCustomer(t, s, name)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := s.ListCustomers(context.Background(), types.CustomersQuery{
		Sort:      types.SortByCreated,
		Direction: types.Desc,
		Offset:    0,
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)

	for i := 1; i < len(page); i++ {
		assert.False(t, page[i].Created.After(page[i-1].Created), "page not in non-increasing created order")
	}
	assert.Equal(t, "Third", page[0].Name)
	assert.Equal(t, "Second", page[1].Name)
}

func testListCustomersByName(t *testing.T, s storage.Storage) {
	for _, name := range []string{"Charlie", "Alpha", "Bravo"} {
		CreateTestCustomer(t, s, name)
	}

	ctx := context.Background()

	asc, err := s.ListCustomers(ctx, types.CustomersQuery{Sort: types.SortByName, Direction: types.Asc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names(asc))

	desc, err := s.ListCustomers(ctx, types.CustomersQuery{Sort: types.SortByName, Direction: types.Desc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Charlie", "Bravo", "Alpha"}, names(desc))
}

func testListCustomersPaging(t *testing.T, s storage.Storage) {
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		CreateTestCustomer(t, s, name)
	}

	ctx := context.Background()
	q := types.CustomersQuery{Sort: types.SortByName, Direction: types.Asc, Offset: 1, Limit: 2}

	page, err := s.ListCustomers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bravo", "Charlie"}, names(page))

	q.Offset = 4
	page, err = s.ListCustomers(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Echo"}, names(page))

	q.Offset = 50
	page, err = s.ListCustomers(ctx, q)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func testListCustomersRejectsInvalidQuery(t *testing.T, s storage.Storage) {
	CreateTestCustomer(t, s, "Alpha")

	bad := []types.CustomersQuery{
		{Sort: "name; DROP TABLE customers", Direction: types.Asc, Limit: 1},
		{Sort: types.SortByName, Direction: "up", Limit: 1},
		{Sort: types.SortByName, Direction: types.Asc, Offset: -1, Limit: 1},
		{Sort: types.SortByName, Direction: types.Asc, Limit: 0},
	}
	for _, q := range bad {
		_, err := s.ListCustomers(context.Background(), q)
		assert.True(t, errors.Is(err, storage.ErrInvalidQuery), "query %+v: got %v", q, err)
	}

	n, err := s.CountCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testCreateOpportunity(t *testing.T, s storage.Storage) {
	c := CreateTestCustomer(t, s, "Acme Corp")

	o, err := s.CreateOpportunity(context.Background(), c.ID, types.Opportunity{
		ID:     uuid.New(), // ignored
		Name:   "Renewal 2026",
		Status: types.StatusNew,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.False(t, o.Created.IsZero())

	list, err := s.ListOpportunities(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)
	assert.Equal(t, "Renewal 2026", list[0].Name)
	assert.Equal(t, types.StatusNew, list[0].Status)
	assert.True(t, o.Created.Equal(list[0].Created))
}

func testCreateOpportunityUnknownCustomer(t *testing.T, s storage.Storage) {
	missing := uuid.New()

	_, err := s.CreateOpportunity(context.Background(), missing, types.Opportunity{
		Name:   "Orphan",
		Status: types.StatusNew,
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	list, err := s.ListOpportunities(context.Background(), missing)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func testOpportunitiesNewestFirst(t *testing.T, s storage.Storage) {
	c := CreateTestCustomer(t, s, "Acme Corp")
	for _, name := range []string{"Oldest", "Middle", "Newest"} {
		CreateTestOpportunity(t, s, c.ID, name)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := s.ListOpportunities(context.Background(), c.ID)
	require.NoError(t, err)

	got := make([]string, 0, len(list))
	for _, o := range list {
		got = append(got, o.Name)
	}
	assert.Equal(t, []string{"Newest", "Middle", "Oldest"}, got)
}

func testOpportunitiesScopedByCustomer(t *testing.T, s storage.Storage) {
	a := CreateTestCustomer(t, s, "Customer A")
	b := CreateTestCustomer(t, s, "Customer B")
	CreateTestOpportunity(t, s, a.ID, "Deal for A")
	CreateTestOpportunity(t, s, b.ID, "Deal for B")
	CreateTestOpportunity(t, s, b.ID, "Second deal for B")

	listA, err := s.ListOpportunities(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, "Deal for A", listA[0].Name)

	listB, err := s.ListOpportunities(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, listB, 2)
}

func testUpdateOpportunity(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	c := CreateTestCustomer(t, s, "Acme Corp")
	o := CreateTestOpportunity(t, s, c.ID, "Initial name")

	err := s.UpdateOpportunity(ctx, c.ID, types.Opportunity{
		ID:      o.ID,
		Name:    "Renamed deal",
		Status:  types.StatusClosedWon,
		Created: time.Unix(0, 0), // ignored
	})
	require.NoError(t, err)

	list, err := s.ListOpportunities(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)
	assert.Equal(t, "Renamed deal", list[0].Name)
	assert.Equal(t, types.StatusClosedWon, list[0].Status)
	assert.True(t, o.Created.Equal(list[0].Created), "created must not change on update")

	err = s.UpdateOpportunity(ctx, c.ID, types.Opportunity{ID: uuid.New(), Name: "Ghost", Status: types.StatusNew})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testUpdateOpportunityWrongCustomer(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	owner := CreateTestCustomer(t, s, "Owner")
	other := CreateTestCustomer(t, s, "Other")
	o := CreateTestOpportunity(t, s, owner.ID, "Owned deal")

	err := s.UpdateOpportunity(ctx, other.ID, types.Opportunity{ID: o.ID, Name: "Hijacked", Status: types.StatusClosedLost})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	list, err := s.ListOpportunities(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Owned deal", list[0].Name)
	assert.Equal(t, types.StatusNew, list[0].Status)
}

func testDeleteOpportunity(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	owner := CreateTestCustomer(t, s, "Owner")
	other := CreateTestCustomer(t, s, "Other")
	keep := CreateTestOpportunity(t, s, owner.ID, "Keep me")
	drop := CreateTestOpportunity(t, s, owner.ID, "Drop me")

	// wrong owner leaves the row alone
	require.NoError(t, s.DeleteOpportunity(ctx, other.ID, drop.ID))
	list, err := s.ListOpportunities(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteOpportunity(ctx, owner.ID, drop.ID))
	list, err = s.ListOpportunities(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func testDeleteMissingOpportunity(t *testing.T, s storage.Storage) {
	c := CreateTestCustomer(t, s, "Acme Corp")

	assert.NoError(t, s.DeleteOpportunity(context.Background(), c.ID, uuid.New()))
	assert.NoError(t, s.DeleteOpportunity(context.Background(), uuid.New(), uuid.New()))
}

func testPing(t *testing.T, s storage.Storage) {
	assert.NoError(t, s.Ping(context.Background()))
}

func names(customers []types.Customer) []string {
	out := make([]string, 0, len(customers))
	for _, c := range customers {
		out = append(out, c.Name)
	}
	return out
}
