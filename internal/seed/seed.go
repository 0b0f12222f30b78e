// Package seed fills an empty database with customers and opportunities
// read from a JSON file.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/types"
)

// Customer is one entry of the seed file.
type Customer struct {
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Status        string        `json:"status"`
	Opportunities []Opportunity `json:"opportunities"`
}

type Opportunity struct {
	Name   string                  `json:"name"`
	Status types.OpportunityStatus `json:"status"`
}

// Read parses the seed file at path and validates every record.
func Read(path string) ([]Customer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed.Read: %w", err)
	}

	var customers []Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return nil, fmt.Errorf("seed.Read: decode %s: %w", path, err)
	}

	for i, c := range customers {
		if err := types.Validate(c.customer()); err != nil {
			return nil, fmt.Errorf("seed.Read: customer %d (%q): %w", i, c.Name, err)
		}
		for j, o := range c.Opportunities {
			if err := types.Validate(o.opportunity()); err != nil {
				return nil, fmt.Errorf("seed.Read: customer %d opportunity %d (%q): %w", i, j, o.Name, err)
			}
		}
	}

	return customers, nil
}

// Load applies the seed file at path when the database holds no
// customers. It returns the number of customers inserted; zero means the
// database was already populated.
func Load(ctx context.Context, s storage.Storage, path string) (int, error) {
	customers, err := Read(path)
	if err != nil {
		return 0, err
	}

	n, err := s.CountCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed.Load: count: %w", err)
	}
	if n > 0 {
		slog.Debug("database already seeded", slog.Int("customers", n))
		return 0, nil
	}

	for _, c := range customers {
		stored, err := s.CreateCustomer(ctx, c.customer())
		if err != nil {
			return 0, fmt.Errorf("seed.Load: create customer %q: %w", c.Name, err)
		}
		for _, o := range c.Opportunities {
			if _, err := s.CreateOpportunity(ctx, stored.ID, o.opportunity()); err != nil {
				return 0, fmt.Errorf("seed.Load: create opportunity %q: %w", o.Name, err)
			}
		}
	}

	slog.Info("database seeded",
		slog.String("path", path),
		slog.Int("customers", len(customers)))

	return len(customers), nil
}

func (c Customer) customer() types.Customer {
	return types.Customer{Name: c.Name, Email: c.Email, Status: c.Status}
}

func (o Opportunity) opportunity() types.Opportunity {
	return types.Opportunity{Name: o.Name, Status: o.Status}
}
