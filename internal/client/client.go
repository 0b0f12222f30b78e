// Package client is a typed HTTP client for the CRM API, used by the
// crmctl front-end.
//
// Failures fall into three kinds. ErrRequest means the request never got
// a response. *StatusError means the server answered with a non-2xx
// status. ErrDeserialize means a 2xx body could not be decoded. Nothing is
// retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/aanand-mishra/crm-api/internal/utils/response"
	"github.com/google/uuid"
)

var (
	ErrRequest     = errors.New("request failed")
	ErrDeserialize = errors.New("cannot decode response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:8000". A nil httpClient gets a 10s timeout default.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) ListCustomers(ctx context.Context, q types.CustomersQuery) ([]types.Customer, error) {
	var customers []types.Customer
	err := c.do(ctx, http.MethodGet, "/api/customers?"+q.Values().Encode(), nil, &customers)
	return customers, err
}

func (c *Client) GetCustomer(ctx context.Context, id uuid.UUID) (types.Customer, error) {
	var customer types.Customer
	err := c.do(ctx, http.MethodGet, "/api/customer/"+id.String(), nil, &customer)
	return customer, err
}

func (c *Client) ListOpportunities(ctx context.Context, customerID uuid.UUID) ([]types.Opportunity, error) {
	var opportunities []types.Opportunity
	err := c.do(ctx, http.MethodGet, opportunitiesPath(customerID), nil, &opportunities)
	return opportunities, err
}

func (c *Client) CreateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) (types.Opportunity, error) {
	var created types.Opportunity
	err := c.do(ctx, http.MethodPost, opportunitiesPath(customerID), o, &created)
	return created, err
}

func (c *Client) UpdateOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) error {
	return c.do(ctx, http.MethodPut, opportunityPath(customerID, o.ID), o, nil)
}

// SaveOpportunity validates o, then creates it when it is a draft and
// updates it otherwise. The stored opportunity is returned.
func (c *Client) SaveOpportunity(ctx context.Context, customerID uuid.UUID, o types.Opportunity) (types.Opportunity, error) {
	if err := types.Validate(o); err != nil {
		return types.Opportunity{}, err
	}

	if o.IsDraft() {
		return c.CreateOpportunity(ctx, customerID, o)
	}
	if err := c.UpdateOpportunity(ctx, customerID, o); err != nil {
		return types.Opportunity{}, err
	}
	return o, nil
}

func (c *Client) DeleteOpportunity(ctx context.Context, customerID, opportunityID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, opportunityPath(customerID, opportunityID), nil, nil)
}

func opportunitiesPath(customerID uuid.UUID) string {
	return "/api/customer/" + customerID.String() + "/opportunities"
}

func opportunityPath(customerID, opportunityID uuid.UUID) string {
	return "/api/customer/" + customerID.String() + "/opportunity/" + opportunityID.String()
}

// do sends body as JSON and decodes a 2xx response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrRequest, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRequest, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var envelope response.Response
		if json.Unmarshal(data, &envelope) == nil {
			se.Message = envelope.Error
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDeserialize, method, path, err)
	}
	return nil
}
