package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/ticket-ledger/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInvalidStartsAt    = "invalid_starts_at"
	codeInvalidInput       = "invalid_input"
	codeForbidden          = "forbidden"
	codeInvalidState       = "invalid_state"
	codeCapacityExceeded   = "capacity_exceeded"
	codePaymentMismatch    = "payment_mismatch"
	codePaymentFailed      = "payment_failed"
	codeMissingToken       = "missing_token"
	codeInvalidToken       = "invalid_token"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a domain error kind to a status and machine code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrPaymentMismatch):
		writeError(w, http.StatusUnprocessableEntity, codePaymentMismatch, err.Error())
	case errors.Is(err, domain.ErrPaymentFailed):
		writeError(w, http.StatusBadGateway, codePaymentFailed, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
