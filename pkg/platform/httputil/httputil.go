// Package httputil writes JSON responses and maps coded domain errors
// onto HTTP statuses. Handlers never pick status codes by hand.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "wrapregistry/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeAlreadyInitialized: http.StatusConflict,
	dErrors.CodeNotInitialized:     http.StatusConflict,
	dErrors.CodeUnauthorized:       http.StatusForbidden,
	dErrors.CodeWrapAlreadyExists:  http.StatusConflict,
	dErrors.CodeInvalidSignature:   http.StatusForbidden,
	dErrors.CodeTransferNotAllowed: http.StatusForbidden,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders err as {"error": code, "error_description": msg}.
// Internal errors omit the description so storage details never leak
// to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = dErrors.CodeInternal
	}

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.Description = dErrors.MessageOf(err)
	}

	WriteJSON(w, status, body)
}

// WriteJSON renders v with the given status. Encoding failures are
// unrecoverable mid-response; the handler has already committed the
// status line.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteNoContent responds 204 with an empty body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
