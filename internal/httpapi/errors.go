package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"formgate.org/internal/obs"
)

type errorKind string

const (
	kindMissingFields      errorKind = "missing_fields"
	kindInvalidField       errorKind = "invalid_field"
	kindInvalidChoice      errorKind = "invalid_choice"
	kindConsentRequired    errorKind = "consent_required"
	kindRateLimited        errorKind = "rate_limited"
	kindUnauthorized       errorKind = "unauthorized"
	kindInvalidCredentials errorKind = "invalid_credentials"
	kindInvalidCSRF        errorKind = "invalid_csrf"
	kindBadRequest         errorKind = "bad_request"
	kindNotFound           errorKind = "not_found"
	kindMethodNotAllowed   errorKind = "method_not_allowed"
	kindInternal           errorKind = "internal_error"
)

// apiError is a client-facing failure. Message is safe to show; Details are
// merged into the response body.
type apiError struct {
	Kind    errorKind
	Status  int
	Message string
	Details map[string]any
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newAPIError(kind errorKind, status int, msg string) *apiError {
	return &apiError{Kind: kind, Status: status, Message: msg}
}

func (e *apiError) with(key string, value any) *apiError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func errUnauthorized() *apiError {
	return newAPIError(kindUnauthorized, http.StatusUnauthorized, "Unauthorized")
}

func errInvalidCredentials() *apiError {
	return newAPIError(kindInvalidCredentials, http.StatusUnauthorized, "Invalid credentials")
}

func errInvalidCSRF() *apiError {
	return newAPIError(kindInvalidCSRF, http.StatusForbidden, "Invalid or missing security token")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, e *apiError) {
	payload := make(map[string]any, len(e.Details)+3)
	for k, v := range e.Details {
		payload[k] = v
	}
	payload["error"] = e.Message
	payload["code"] = e.Kind
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, e.Status, payload)
}

// writeInternalError logs err and answers with a generic message only.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	obs.Logger().Error("internal error",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, r, newAPIError(kindInternal, http.StatusInternalServerError, "Internal server error"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, newAPIError(kindMethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, newAPIError(kindNotFound, http.StatusNotFound, "resource not found"))
}

// decodeJSON reads exactly one JSON object from the body. The body size is
// bounded by the MaxBodyBytes middleware.
func decodeJSON(r *http.Request, dst any) *apiError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return newAPIError(kindBadRequest, http.StatusBadRequest, "unexpected data after JSON body")
		}
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) *apiError {
	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return newAPIError(kindBadRequest, http.StatusBadRequest, "request body is required")
	case errors.As(err, &maxErr):
		return newAPIError(kindBadRequest, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return newAPIError(kindBadRequest, http.StatusBadRequest, "malformed JSON body")
	case errors.As(err, &typeErr):
		return newAPIError(kindInvalidField, http.StatusBadRequest, fmt.Sprintf("%s has the wrong type", typeErr.Field)).
			with("field", typeErr.Field)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return newAPIError(kindBadRequest, http.StatusBadRequest, fmt.Sprintf("unknown field %q", field))
	default:
		return newAPIError(kindBadRequest, http.StatusBadRequest, "malformed JSON body")
	}
}
