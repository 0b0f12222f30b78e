package bolt

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
		StorageDriver: config.DriverBolt,
		StoragePath:   path,
		Database: config.Database{
			RetryAttempts:  2,
			RetryBaseDelay: time.Millisecond,
		},
	}
}

func TestBoltConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s, err := New(testConfig(filepath.Join(t.TempDir(), "crm.bolt")))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.bolt")

	first, err := New(testConfig(path))
	require.NoError(t, err)
	c := storagetest.CreateTestCustomer(t, first, "Persisted Customer")
	o := storagetest.CreateTestOpportunity(t, first, c.ID, "Persisted deal")
	require.NoError(t, first.Close())

	second, err := New(testConfig(path))
	require.NoError(t, err)
	defer second.Close()

	list, err := second.ListOpportunities(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)
	assert.True(t, o.Created.Equal(list[0].Created))
}

func TestCanceledContext(t *testing.T) {
	s, err := New(testConfig(filepath.Join(t.TempDir(), "crm.bolt")))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.ListCustomers(ctx, types.DefaultCustomersQuery())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.CreateCustomer(ctx, types.Customer{Name: "Late Corp", Email: "late@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCustomerOrderTieBreaksOnID(t *testing.T) {
	s, err := New(testConfig(filepath.Join(t.TempDir(), "crm.bolt")))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 4; i++ {
		storagetest.CreateTestCustomer(t, s, "Same Name")
	}

	q := types.CustomersQuery{Sort: types.SortByName, Direction: types.Asc, Limit: 10}
	first, err := s.ListCustomers(context.Background(), q)
	require.NoError(t, err)
	second, err := s.ListCustomers(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ID.String(), first[i].ID.String())
	}
}
