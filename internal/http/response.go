// Package http serves the finboard JSON API.
//
// This file holds the response builder every handler writes through, and the
// single mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	applog "finboard/internal/log"
)

// envelope is the body shape of every successful response.
type envelope struct {
	Data     any             `json:"data"`
	Affected *core.ChangeSet `json:"affected,omitempty"`
}

// errorBody is the body shape of every failed response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a builder with a 200 status and a data envelope.
func NewJSONResponse(data any) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       envelope{Data: data},
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Affected attaches the change set of a mutation to the envelope.
func (b *JSONResponseBuilder) Affected(cs core.ChangeSet) *JSONResponseBuilder {
	if env, ok := b.body.(envelope); ok {
		env.Affected = &cs
		b.body = env
	}
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a response with the standard error body.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: statusCode,
		body:       errorBody{Error: message},
		headers:    make(map[string]string),
	}
}

// ValidationErrorResponse reports per-field failures with a 400.
func ValidationErrorResponse(verr *core.ValidationError) *JSONResponseBuilder {
	b := ErrorResponse(http.StatusBadRequest, "validation failed")
	b.body = errorBody{Error: "validation failed", Fields: verr.Fields}
	return b
}

// errorStatus maps an error to its status, client-visible message and log type.
// Unknown errors become a generic 500; their detail stays in the logs.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", applog.ErrorTypeAuth
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found", applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "resource is still referenced", applog.ErrorTypeConflict
	case errors.Is(err, core.ErrMissingParameter):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	default:
		return http.StatusInternalServerError, "internal server error", applog.ErrorTypeInternal
	}
}

// writeError renders err and logs it: server errors at error level, client
// errors at debug since the trace middleware already logs them as warnings.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if verr, ok := core.AsValidationError(err); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Request failed validation", applog.FieldError, verr.Error())
		ValidationErrorResponse(verr).Write(w)
		return
	}

	status, message, errType := errorStatus(err)
	if status >= http.StatusInternalServerError {
		applog.LogError(ctx, "Request failed", err, errType, r.Method+" "+r.URL.Path, nil)
	} else {
		applog.FromContext(ctx).DebugContext(ctx, "Request rejected",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, errType)
	}
	ErrorResponse(status, message).Write(w)
}

// unauthorized is the auth middleware's rejection writer.
func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err)
}
