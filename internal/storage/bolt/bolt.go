// Package bolt provides a BoltDB-backed implementation of storage.Storage.
//
// Customers are JSON values in the "customers" bucket keyed by id.
// Opportunities live in the "opportunities" bucket, inside one nested
// bucket per customer, so every opportunity lookup is scoped by its owner.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/types"
	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"
)

var (
	customersBucket     = []byte("customers")
	opportunitiesBucket = []byte("opportunities")
)

// Store wraps a BoltDB database.
type Store struct {
	db *bolt.DB
}

var _ storage.Storage = (*Store)(nil)

// New opens (or creates) the database file at cfg.StoragePath and ensures
// the top-level buckets exist. Opening is retried while another process
// holds the file lock.
func New(cfg *config.Config) (*Store, error) {
	var (
		db  *bolt.DB
		err error
	)
	attempts := cfg.Database.RetryAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = bolt.Open(cfg.StoragePath, 0o600, &bolt.Options{Timeout: time.Second})
		if err == nil {
			break
		}
		slog.Warn("bolt open failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt < attempts {
			time.Sleep(cfg.Database.RetryBaseDelay * time.Duration(attempt*attempt))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("bolt.New: open db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{customersBucket, opportunitiesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt.New: create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// customerRecord is the stored JSON form of a customer, kept separate from
// types.Customer so the API shape can change without rewriting the file.
type customerRecord struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

func (s *Store) ListCustomers(ctx context.Context, q types.CustomersQuery) ([]types.Customer, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("ListCustomers: %w", storage.ErrInvalidQuery)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []types.Customer
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(customersBucket).ForEach(func(_, v []byte) error {
			var rec customerRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			all = append(all, types.Customer(rec))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ListCustomers: view: %w", err)
	}

	slices.SortFunc(all, customerOrder(q.Sort, q.Direction))

	page := make([]types.Customer, 0)
	if q.Offset < len(all) {
		end := min(q.Offset+q.Limit, len(all))
		page = append(page, all[q.Offset:end]...)
	}

	return page, nil
}

// customerOrder compares by the sort field, then by id, both in the
// requested direction.
func customerOrder(field types.SortField, dir types.SortDirection) func(a, b types.Customer) int {
	return func(a, b types.Customer) int {
		var c int
		switch field {
		case types.SortByName:
			c = strings.Compare(a.Name, b.Name)
		case types.SortByEmail:
			c = strings.Compare(a.Email, b.Email)
		case types.SortByStatus:
			c = strings.Compare(a.Status, b.Status)
		case types.SortByCreated:
			c = a.Created.Compare(b.Created)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if dir == types.Desc {
			c = -c
		}
		return c
	}
}

func (s *Store) GetCustomerByID(ctx context.Context, id uuid.UUID) (types.Customer, error) {
	if err := ctx.Err(); err != nil {
		return types.Customer{}, err
	}

	var (
		rec   customerRecord
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(customersBucket).Get(key(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return types.Customer{}, fmt.Errorf("GetCustomerByID: view: %w", err)
	}
	if !found {
		return types.Customer{}, fmt.Errorf("no customer found with id %s: %w", id, storage.ErrNotFound)
	}

	return types.Customer(rec), nil
}

func (s *Store) CreateCustomer(ctx context.Context, c types.Customer) (types.Customer, error) {
	if err := ctx.Err(); err != nil {
		return types.Customer{}, err
	}

	c.ID = uuid.New()
	c.Created = time.Now().UTC()

	buf, err := json.Marshal(customerRecord(c))
	if err != nil {
		return types.Customer{}, fmt.Errorf("CreateCustomer: marshal: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(customersBucket).Put(key(c.ID), buf)
	})
	if err != nil {
		return types.Customer{}, fmt.Errorf("CreateCustomer: update: %w", err)
	}

	return c, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(customersBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("CountCustomers: view: %w", err)
	}
	return n, nil
}

type opportunityRecord struct {
	ID      uuid.UUID               `json:"id"`
	Name    string                  `json:"name"`
	Status  types.OpportunityStatus `json:"status"`
	Created time.Time               `json:"created"`
}

func (s *Store) ListOpportunities(ctx context.Context, customerID uuid.UUID) ([]types.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opportunities := make([]types.Opportunity, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(opportunitiesBucket).Bucket(key(customerID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec opportunityRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			opportunities = append(opportunities, types.Opportunity(rec))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ListOpportunities: view: %w", err)
	}

	slices.SortFunc(opportunities, func(a, b types.Opportunity) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})

	return opportunities, nil
}

func (s *Store) CreateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) (types.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return types.Opportunity{}, err
	}

	o.ID = uuid.New()
	o.Created = time.Now().UTC()

	buf, err := json.Marshal(opportunityRecord(o))
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("CreateOpportunity: marshal: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(customersBucket).Get(key(customerID)) == nil {
			return fmt.Errorf("no customer found with id %s: %w", customerID, storage.ErrNotFound)
		}
		b, err := tx.Bucket(opportunitiesBucket).CreateBucketIfNotExists(key(customerID))
		if err != nil {
			return err
		}
		return b.Put(key(o.ID), buf)
	})
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("CreateOpportunity: update: %w", err)
	}

	return o, nil
}

// UpdateOpportunity rewrites name and status only; id, owner and created
// time stay as stored.
func (s *Store) UpdateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		notFound := fmt.Errorf("no opportunity %s for customer %s: %w", o.ID, customerID, storage.ErrNotFound)

		b := tx.Bucket(opportunitiesBucket).Bucket(key(customerID))
		if b == nil {
			return notFound
		}
		v := b.Get(key(o.ID))
		if v == nil {
			return notFound
		}

		var rec opportunityRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		rec.Name = o.Name
		rec.Status = o.Status

		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key(o.ID), buf)
	})
	if err != nil {
		return fmt.Errorf("UpdateOpportunity: update: %w", err)
	}

	return nil
}

func (s *Store) DeleteOpportunity(ctx context.Context, customerID, opportunityID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(opportunitiesBucket).Bucket(key(customerID))
		if b == nil {
			return nil
		}
		return b.Delete(key(opportunityID))
	})
	if err != nil {
		return fmt.Errorf("DeleteOpportunity: update: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(customersBucket) == nil {
			return fmt.Errorf("bucket %q missing", customersBucket)
		}
		return nil
	})
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id uuid.UUID) []byte {
	return []byte(id.String())
}
