// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// The schema lives in embedded migration files applied with
// golang-migrate on startup. Timestamps are stored as fixed-width UTC text
// so that ordering by the created column is chronological.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the concrete implementation of storage.Storage.
// Db is a connection pool and safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the database at cfg.StoragePath, waits for it to answer a ping
// and migrates the schema to the latest version.
func New(cfg *config.Config) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.StoragePath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := connect(db, cfg.Database.RetryAttempts, cfg.Database.RetryBaseDelay); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: connect: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: migrate: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// connect pings db up to attempts times, sleeping base*attempt² between
// tries. Only connection acquisition is retried, never a business query.
func connect(db *sql.DB, attempts int, base time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		slog.Warn("database ping failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt < attempts {
			time.Sleep(base * time.Duration(attempt*attempt))
		}
	}
	return err
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	// m.Close would close db as well, so the migrator is simply dropped.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("up: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (types.Customer, error) {
	var (
		c       types.Customer
		created string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Status, &created); err != nil {
		return types.Customer{}, err
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return types.Customer{}, fmt.Errorf("parse created: %w", err)
	}
	c.Created = t

	return c, nil
}

func scanOpportunity(row scanner) (types.Opportunity, error) {
	var (
		o       types.Opportunity
		created string
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Status, &created); err != nil {
		return types.Opportunity{}, err
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("parse created: %w", err)
	}
	o.Created = t

	return o, nil
}

// ListCustomers returns one page of customers.
//
// Placeholders cannot stand in for column names or ASC/DESC, so sort and
// direction are formatted into the query text. Both are checked against
// their closed sets first; anything else is rejected with
// storage.ErrInvalidQuery and never reaches SQLite.
func (s *SQLite) ListCustomers(ctx context.Context, q types.CustomersQuery) ([]types.Customer, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("ListCustomers: %w", storage.ErrInvalidQuery)
	}

	query := fmt.Sprintf(
		"SELECT id, name, email, status, created FROM customers ORDER BY %s %s, id %[2]s LIMIT ? OFFSET ?",
		q.Sort, q.Direction,
	)

	rows, err := s.Db.QueryContext(ctx, query, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("ListCustomers: query: %w", err)
	}
	defer rows.Close()

	customers := make([]types.Customer, 0, q.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCustomers: scan row: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCustomers: rows iteration: %w", err)
	}

	return customers, nil
}

func (s *SQLite) GetCustomerByID(ctx context.Context, id uuid.UUID) (types.Customer, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT id, name, email, status, created FROM customers WHERE id = ? LIMIT 1",
		id,
	)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Customer{}, fmt.Errorf("no customer found with id %s: %w", id, storage.ErrNotFound)
		}
		return types.Customer{}, fmt.Errorf("GetCustomerByID: scan: %w", err)
	}

	return c, nil
}

func (s *SQLite) CreateCustomer(ctx context.Context, c types.Customer) (types.Customer, error) {
	c.ID = uuid.New()
	c.Created = time.Now().UTC()

	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO customers (id, name, email, status, created) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Email, c.Status, formatTime(c.Created),
	)
	if err != nil {
		return types.Customer{}, fmt.Errorf("CreateCustomer: exec: %w", err)
	}

	return c, nil
}

func (s *SQLite) CountCustomers(ctx context.Context) (int, error) {
	var n int
	if err := s.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&n); err != nil {
		return 0, fmt.Errorf("CountCustomers: scan: %w", err)
	}
	return n, nil
}

func (s *SQLite) ListOpportunities(ctx context.Context, customerID uuid.UUID) ([]types.Opportunity, error) {
	rows, err := s.Db.QueryContext(ctx, `
		SELECT id, name, status, created
		FROM opportunities
		WHERE customer_id = ?
		ORDER BY created DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListOpportunities: query: %w", err)
	}
	defer rows.Close()

	opportunities := make([]types.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("ListOpportunities: scan row: %w", err)
		}
		opportunities = append(opportunities, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOpportunities: rows iteration: %w", err)
	}

	return opportunities, nil
}

// CreateOpportunity inserts the opportunity only if the owning customer
// exists; the INSERT ... SELECT affects zero rows otherwise.
func (s *SQLite) CreateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) (types.Opportunity, error) {
	o.ID = uuid.New()
	o.Created = time.Now().UTC()

	res, err := s.Db.ExecContext(ctx, `
		INSERT INTO opportunities (id, customer_id, name, status, created)
		SELECT ?, id, ?, ?, ? FROM customers WHERE id = ?`,
		o.ID, o.Name, o.Status, formatTime(o.Created), customerID,
	)
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("CreateOpportunity: exec: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return types.Opportunity{}, fmt.Errorf("CreateOpportunity: rows affected: %w", err)
	}
	if n == 0 {
		return types.Opportunity{}, fmt.Errorf("no customer found with id %s: %w", customerID, storage.ErrNotFound)
	}

	return o, nil
}

func (s *SQLite) UpdateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) error {
	res, err := s.Db.ExecContext(ctx,
		"UPDATE opportunities SET name = ?, status = ? WHERE customer_id = ? AND id = ?",
		o.Name, o.Status, customerID, o.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateOpportunity: exec: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateOpportunity: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no opportunity %s for customer %s: %w", o.ID, customerID, storage.ErrNotFound)
	}

	return nil
}

func (s *SQLite) DeleteOpportunity(ctx context.Context, customerID, opportunityID uuid.UUID) error {
	_, err := s.Db.ExecContext(ctx,
		"DELETE FROM opportunities WHERE customer_id = ? AND id = ?",
		customerID, opportunityID,
	)
	if err != nil {
		return fmt.Errorf("DeleteOpportunity: exec: %w", err)
	}

	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}
