// Package response writes the JSON bodies returned by every handler.
//
// Success bodies are whatever the handler returns (a customer, a list of
// opportunities). Failures always use the same envelope:
//
//	{"status":"error","error":"field name must be at least 3 characters"}
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the status envelope used for errors and health checks.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON sets the content type, writes status and encodes data as the
// body. Headers cannot change once WriteHeader has been called.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK is the body of a successful call that has nothing else to return.
func OK() Response {
	return Response{Status: StatusOK}
}

// GeneralError wraps err in the error envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError turns the field errors reported by validator into one
// message, one clause per failing field joined with ", ".
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s%s", e.Field(), e.Param(), unit(e)))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s%s", e.Field(), e.Param(), unit(e)))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, ", "),
	}
}

// unit names what min and max count for strings; numbers are bare.
func unit(e validator.FieldError) string {
	if e.Kind() == reflect.String {
		return " characters"
	}
	return ""
}
