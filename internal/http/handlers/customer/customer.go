// Package customer contains the HTTP handlers for customers and their
// opportunities.
//
// Each exported function is a factory: it takes the storage dependency and
// returns an http.HandlerFunc closing over it. Path parameters are read
// with chi.URLParam, so the handlers expect to be mounted on a chi router
// with {id} and, where relevant, {oid} in the pattern.
//
// Every handler follows the same steps:
//
//  1. parse the path ids, answering 400 for anything that is not a UUID
//  2. decode and validate the body (POST and PUT only), answering 400
//  3. call storage with the request context
//  4. map storage errors with writeStorageError, or write the result
//
// Validation always happens before storage is touched, so a rejected
// request never mutates anything.
package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/aanand-mishra/crm-api/internal/types"
	"github.com/aanand-mishra/crm-api/internal/utils/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// List handles GET /customers.
func List(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := types.ParseCustomersQuery(r.URL.Query())
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		if !writeInvalid(w, types.Validate(q)) {
			return
		}

		slog.Debug("listing customers",
			slog.String("sort", string(q.Sort)),
			slog.String("direction", string(q.Direction)),
			slog.Int("offset", q.Offset),
			slog.Int("limit", q.Limit))

		customers, err := storage.ListCustomers(r.Context(), q)
		if err != nil {
			writeStorageError(w, "error listing customers", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, customers)
	}
}

// GetByID handles GET /customer/{id}.
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		customer, err := storage.GetCustomerByID(r.Context(), id)
		if err != nil {
			writeStorageError(w, "error getting customer", err, slog.String("id", id.String()))
			return
		}

		response.WriteJSON(w, http.StatusOK, customer)
	}
}

// ListOpportunities handles GET /customer/{id}/opportunities. An unknown
// customer has no opportunities, so the answer is an empty list.
func ListOpportunities(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		opportunities, err := storage.ListOpportunities(r.Context(), id)
		if err != nil {
			writeStorageError(w, "error listing opportunities", err, slog.String("customer_id", id.String()))
			return
		}

		response.WriteJSON(w, http.StatusOK, opportunities)
	}
}

// CreateOpportunity handles POST /customer/{id}/opportunities.
//
// Any id or created value in the body is ignored: storage assigns both and
// the stored opportunity is returned with 200. A customer id that matches
// no customer answers 404.
func CreateOpportunity(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		o, ok := decodeOpportunity(w, r)
		if !ok {
			return
		}

		created, err := storage.CreateOpportunity(r.Context(), customerID, o)
		if err != nil {
			writeStorageError(w, "error creating opportunity", err, slog.String("customer_id", customerID.String()))
			return
		}

		slog.Info("opportunity created",
			slog.String("customer_id", customerID.String()),
			slog.String("id", created.ID.String()))

		response.WriteJSON(w, http.StatusOK, created)
	}
}

// UpdateOpportunity handles PUT /customer/{id}/opportunity/{oid}.
//
// The body must carry the same id as the path; a mismatch answers 400
// before storage is called. Only name and status change. When no
// opportunity matches both ids the answer is 404.
func UpdateOpportunity(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		opportunityID, ok := pathID(w, r, "oid")
		if !ok {
			return
		}

		o, ok := decodeOpportunity(w, r)
		if !ok {
			return
		}
		if o.ID != opportunityID {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(
				fmt.Errorf("opportunity id %s does not match path id %s", o.ID, opportunityID)))
			return
		}

		if err := storage.UpdateOpportunity(r.Context(), customerID, o); err != nil {
			writeStorageError(w, "error updating opportunity", err,
				slog.String("customer_id", customerID.String()),
				slog.String("id", opportunityID.String()))
			return
		}

		slog.Info("opportunity updated",
			slog.String("customer_id", customerID.String()),
			slog.String("id", opportunityID.String()))

		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

// DeleteOpportunity handles DELETE /customer/{id}/opportunity/{oid}.
// Deleting an opportunity that does not exist succeeds.
func DeleteOpportunity(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		opportunityID, ok := pathID(w, r, "oid")
		if !ok {
			return
		}

		if err := storage.DeleteOpportunity(r.Context(), customerID, opportunityID); err != nil {
			writeStorageError(w, "error deleting opportunity", err,
				slog.String("customer_id", customerID.String()),
				slog.String("id", opportunityID.String()))
			return
		}

		slog.Info("opportunity deleted",
			slog.String("customer_id", customerID.String()),
			slog.String("id", opportunityID.String()))

		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

// Health handles GET /healthz.
func Health(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := storage.Ping(r.Context()); err != nil {
			slog.Error("storage ping failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(fmt.Errorf("invalid %s %q: must be a UUID", name, raw)))
		return uuid.Nil, false
	}
	return id, true
}

// opportunityBody is the wire shape of a POST or PUT body.
//
// Created is assigned by storage and never read from a request, so it is
// kept as raw JSON: "", null, a timestamp or a missing key all decode.
// Browser front-ends send "" for a draft that has not been stored yet.
type opportunityBody struct {
	ID      uuid.UUID               `json:"id"`
	Name    string                  `json:"name"`
	Status  types.OpportunityStatus `json:"status"`
	Created json.RawMessage         `json:"created"`
}

// decodeOpportunity reads the request body and validates it.
//
// On failure it has already written the 400 response and returns false,
// so the caller just returns:
//
//	empty body          -> "request body is empty"
//	malformed JSON      -> the decoder error
//	validation failure  -> one message per failing field
//
// The returned opportunity carries the body's id (used by PUT to check the
// path) and never a created time.
func decodeOpportunity(w http.ResponseWriter, r *http.Request) (types.Opportunity, bool) {
	var body opportunityBody

	err := json.NewDecoder(r.Body).Decode(&body)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return types.Opportunity{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Opportunity{}, false
	}

	o := types.Opportunity{ID: body.ID, Name: body.Name, Status: body.Status}
	return o, writeInvalid(w, types.Validate(o))
}

// writeInvalid answers 400 for validation failures and reports whether
// err was nil.
func writeInvalid(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		return false
	}

	slog.Error("validation failed", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	return false
}

// writeStorageError maps a storage failure to a response:
//
//	storage.ErrNotFound      -> 404
//	storage.ErrInvalidQuery  -> 400
//	context deadline         -> 504, the request timeout cut the call off
//	anything else            -> 500, logged at error level with attrs
//
// Only unexpected failures are logged as errors; the process keeps
// serving either way.
func writeStorageError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
	case errors.Is(err, storage.ErrInvalidQuery):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn(msg, append(attrs, slog.String("error", err.Error()))...)
		response.WriteJSON(w, http.StatusGatewayTimeout, response.GeneralError(err))
	default:
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}
