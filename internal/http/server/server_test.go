package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/storage/bolt"
	"github.com/aanand-mishra/crm-api/internal/storage/storagetest"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHTTPConfig = config.HTTPServer{
	Addr:           "127.0.0.1:0",
	ReadTimeout:    time.Second,
	WriteTimeout:   time.Second,
	IdleTimeout:    time.Second,
	RequestTimeout: time.Second,
	AllowedOrigins: []string{"http://localhost:8080"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()

	s, err := bolt.New(&config.Config{
		StoragePath: filepath.Join(t.TempDir(), "crm.bolt"),
		Database:    config.Database{RetryAttempts: 1, RetryBaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoutesUnderAPI(t *testing.T) {
	s := newTestStorage(t)
	c := storagetest.CreateTestCustomer(t, s, "Routed Corp")
	h := NewRouter(testHTTPConfig, s, discardLogger())

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodGet, "/healthz", nil, http.StatusOK},
		{http.MethodGet, "/api/customers", nil, http.StatusOK},
		{http.MethodGet, "/api/customer/" + c.ID.String(), nil, http.StatusOK},
		{http.MethodGet, "/api/customer/" + uuid.NewString(), nil, http.StatusNotFound},
		{http.MethodGet, "/api/customer/" + c.ID.String() + "/opportunities", nil, http.StatusOK},
		{http.MethodPost, "/api/customer/" + c.ID.String() + "/opportunities",
			types.Opportunity{Name: "Routed deal", Status: types.StatusNew}, http.StatusOK},
		{http.MethodDelete, "/api/customer/" + c.ID.String() + "/opportunity/" + uuid.NewString(), nil, http.StatusOK},
		{http.MethodGet, "/customers", nil, http.StatusNotFound},
		{http.MethodPatch, "/api/customers", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var buf bytes.Buffer
			if tt.body != nil {
				require.NoError(t, json.NewEncoder(&buf).Encode(tt.body))
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, &buf))

			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCORS(t *testing.T) {
	h := NewRouter(testHTTPConfig, newTestStorage(t), discardLogger())

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/customers", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("allowed origin", func(t *testing.T) {
		w := preflight("http://localhost:8080")
		assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		w := preflight("http://evil.example")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

type panickingStorage struct{ storage.Storage }

func (panickingStorage) ListCustomers(context.Context, types.CustomersQuery) ([]types.Customer, error) {
	panic("unexpected")
}

func TestRecoversFromPanic(t *testing.T) {
	h := NewRouter(testHTTPConfig, panickingStorage{}, discardLogger())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/customers", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type slowStorage struct{ storage.Storage }

func (slowStorage) GetCustomerByID(ctx context.Context, _ uuid.UUID) (types.Customer, error) {
	<-ctx.Done()
	return types.Customer{}, ctx.Err()
}

func TestRequestTimeout(t *testing.T) {
	cfg := testHTTPConfig
	cfg.RequestTimeout = 20 * time.Millisecond
	h := NewRouter(cfg, slowStorage{}, discardLogger())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/customer/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"status":"error","error":"context deadline exceeded"}`, w.Body.String())
}

func TestNewUsesConfig(t *testing.T) {
	srv := New(testHTTPConfig, newTestStorage(t), discardLogger())

	assert.Equal(t, testHTTPConfig.Addr, srv.Addr)
	assert.Equal(t, testHTTPConfig.ReadTimeout, srv.ReadTimeout)
	assert.Equal(t, testHTTPConfig.WriteTimeout, srv.WriteTimeout)
	assert.Equal(t, testHTTPConfig.IdleTimeout, srv.IdleTimeout)
	assert.NotNil(t, srv.Handler)
}
