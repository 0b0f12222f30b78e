package types

import (
	"fmt"
	"net/url"
	"strconv"
)

// SortField is the closed set of customer columns a listing may be ordered
// by. Values are formatted straight into query text, so only the constants
// below are ever accepted.
type SortField string

const (
	SortByName    SortField = "name"
	SortByEmail   SortField = "email"
	SortByStatus  SortField = "status"
	SortByCreated SortField = "created"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByName, SortByEmail, SortByStatus, SortByCreated:
		return true
	}
	return false
}

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == Asc || d == Desc
}

// MaxLimit bounds the page size of a customer listing.
const MaxLimit = 1000

// CustomersQuery holds the pagination parameters of a customer listing.
type CustomersQuery struct {
	Sort      SortField     `json:"sort"      validate:"oneof=name email status created"`
	Direction SortDirection `json:"direction" validate:"oneof=asc desc"`
	Offset    int           `json:"offset"    validate:"min=0"`
	Limit     int           `json:"limit"     validate:"min=1,max=1000"`
}

// DefaultCustomersQuery returns the newest twenty customers.
func DefaultCustomersQuery() CustomersQuery {
	return CustomersQuery{
		Sort:      SortByCreated,
		Direction: Desc,
		Offset:    0,
		Limit:     20,
	}
}

// Valid reports whether q can be turned into a query.
func (q CustomersQuery) Valid() bool {
	return q.Sort.Valid() && q.Direction.Valid() &&
		q.Offset >= 0 && q.Limit >= 1 && q.Limit <= MaxLimit
}

// Values encodes q as URL query parameters.
func (q CustomersQuery) Values() url.Values {
	v := url.Values{}
	v.Set("sort", string(q.Sort))
	v.Set("direction", string(q.Direction))
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// ParseCustomersQuery reads sort, direction, offset and limit from v.
// Missing parameters keep their defaults. The result still has to pass
// Validate before use.
func ParseCustomersQuery(v url.Values) (CustomersQuery, error) {
	q := DefaultCustomersQuery()

	if s := v.Get("sort"); s != "" {
		q.Sort = SortField(s)
	}
	if d := v.Get("direction"); d != "" {
		q.Direction = SortDirection(d)
	}
	if o := v.Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil {
			return q, fmt.Errorf("invalid offset %q: must be an integer", o)
		}
		q.Offset = n
	}
	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return q, fmt.Errorf("invalid limit %q: must be an integer", l)
		}
		q.Limit = n
	}

	return q, nil
}
