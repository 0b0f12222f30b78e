package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/storage/storagetest"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(path string) *config.Config {
	return &config.Config{
		StorageDriver: config.DriverSQLite,
		StoragePath:   path,
		Database: config.Database{
			RetryAttempts:  3,
			RetryBaseDelay: time.Millisecond,
			MaxOpenConns:   4,
		},
	}
}

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(testConfig(filepath.Join(t.TempDir(), "crm.db")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return newTestSQLite(t)
	})
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")

	first, err := New(testConfig(path))
	require.NoError(t, err)
	c := storagetest.CreateTestCustomer(t, first, "Persisted Customer")
	require.NoError(t, first.Close())

	// reopening runs the migrations again and keeps the data
	second, err := New(testConfig(path))
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetCustomerByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted Customer", got.Name)
}

func TestNewFailsOnUnreachablePath(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing", "dir", "crm.db"))

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestForeignKeyCascade(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	c := storagetest.CreateTestCustomer(t, s, "Cascade Corp")
	storagetest.CreateTestOpportunity(t, s, c.ID, "Doomed deal")

	_, err := s.Db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", c.ID)
	require.NoError(t, err)

	var n int
	require.NoError(t, s.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestCreatedStoredFixedWidth(t *testing.T) {
	s := newTestSQLite(t)
	c := storagetest.CreateTestCustomer(t, s, "Width Corp")

	var created string
	require.NoError(t, s.Db.QueryRow("SELECT created FROM customers WHERE id = ?", c.ID).Scan(&created))
	assert.Len(t, created, len(timeLayout)-len("Z07:00")+len("Z"))

	parsed, err := time.Parse(timeLayout, created)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(c.Created))
}

func TestListCustomersHonoursContext(t *testing.T) {
	s := newTestSQLite(t)
	storagetest.CreateTestCustomer(t, s, "Context Corp")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListCustomers(ctx, types.DefaultCustomersQuery())
	assert.Error(t, err)
}
