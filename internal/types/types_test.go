package types

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedFields(t *testing.T, err error) []string {
	t.Helper()

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)

	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field())
	}
	return fields
}

func TestValidateOpportunity(t *testing.T) {
	tests := []struct {
		name   string
		opp    Opportunity
		failed []string
	}{
		{"valid new", Opportunity{Name: "Big deal", Status: StatusNew}, nil},
		{"valid won", Opportunity{Name: "abc", Status: StatusClosedWon}, nil},
		{"valid lost at max length", Opportunity{Name: strings.Repeat("x", 300), Status: StatusClosedLost}, nil},
		{"name too short", Opportunity{Name: "ab", Status: StatusNew}, []string{"name"}},
		{"name too long", Opportunity{Name: strings.Repeat("x", 301), Status: StatusNew}, []string{"name"}},
		{"empty status", Opportunity{Name: "Big deal"}, []string{"status"}},
		{"unknown status", Opportunity{Name: "Big deal", Status: "Pending"}, []string{"status"}},
		{"lowercase status", Opportunity{Name: "Big deal", Status: "new"}, []string{"status"}},
		{"both invalid", Opportunity{Name: "", Status: "x"}, []string{"name", "status"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.opp)
			if tc.failed == nil {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tc.failed, failedFields(t, err))
		})
	}
}

func TestValidateNameCountsCharacters(t *testing.T) {
	// three runes, six bytes
	assert.NoError(t, Validate(Opportunity{Name: "äöü", Status: StatusNew}))
	assert.Error(t, Validate(Opportunity{Name: "äö", Status: StatusNew}))
}

func TestValidateCustomer(t *testing.T) {
	ok := Customer{Name: "Acme Corp", Email: "sales@example.com", Status: "Active"}
	assert.NoError(t, Validate(ok))

	bad := ok
	bad.Email = "not-an-email"
	assert.Equal(t, []string{"email"}, failedFields(t, Validate(bad)))

	bad = ok
	bad.Name = "AC"
	assert.Equal(t, []string{"name"}, failedFields(t, Validate(bad)))

	// status is free text
	free := ok
	free.Status = ""
	assert.NoError(t, Validate(free))
}

func TestOpportunityStatusValid(t *testing.T) {
	assert.True(t, StatusNew.Valid())
	assert.True(t, StatusClosedWon.Valid())
	assert.True(t, StatusClosedLost.Valid())
	assert.False(t, OpportunityStatus("Open").Valid())
}

func TestOpportunityIsDraft(t *testing.T) {
	assert.True(t, Opportunity{}.IsDraft())
	assert.False(t, Opportunity{ID: uuid.New()}.IsDraft())
}

func TestParseCustomersQuery(t *testing.T) {
	q, err := ParseCustomersQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomersQuery(), q)

	q, err = ParseCustomersQuery(url.Values{
		"sort":      {"name"},
		"direction": {"asc"},
		"offset":    {"10"},
		"limit":     {"5"},
	})
	require.NoError(t, err)
	assert.Equal(t, CustomersQuery{Sort: SortByName, Direction: Asc, Offset: 10, Limit: 5}, q)
	assert.True(t, q.Valid())
	assert.NoError(t, Validate(q))

	_, err = ParseCustomersQuery(url.Values{"limit": {"ten"}})
	assert.Error(t, err)

	_, err = ParseCustomersQuery(url.Values{"offset": {"1.5"}})
	assert.Error(t, err)
}

func TestCustomersQueryValidation(t *testing.T) {
	base := DefaultCustomersQuery()

	tests := []struct {
		name   string
		mutate func(*CustomersQuery)
	}{
		{"unknown sort", func(q *CustomersQuery) { q.Sort = "id; drop table customers" }},
		{"unknown direction", func(q *CustomersQuery) { q.Direction = "sideways" }},
		{"negative offset", func(q *CustomersQuery) { q.Offset = -1 }},
		{"zero limit", func(q *CustomersQuery) { q.Limit = 0 }},
		{"huge limit", func(q *CustomersQuery) { q.Limit = MaxLimit + 1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := base
			tc.mutate(&q)
			assert.False(t, q.Valid())
			assert.Error(t, Validate(q))
		})
	}
}

func TestCustomersQueryValuesRoundTrip(t *testing.T) {
	want := CustomersQuery{Sort: SortByStatus, Direction: Asc, Offset: 3, Limit: 7}
	got, err := ParseCustomersQuery(want.Values())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
