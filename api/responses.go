package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"raffle/domain/entities"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse acknowledges an action without returning data
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "Validation failed", Kind: string(entities.KindInvalidInput)}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		resp.Details = make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			resp.Details[fe.Field()] = fmt.Sprintf("failed on '%s' tag", fe.Tag())
		}
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeLedgerError maps a ledger error kind to its HTTP status. Storage failures
// are logged and reported without their cause.
func writeLedgerError(w http.ResponseWriter, err error) {
	kind := entities.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	var ledgerErr *entities.Error
	if errors.As(err, &ledgerErr) {
		message = ledgerErr.Message
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Ledger operation failed")
		message = "Internal server error"
		if kind == "" {
			kind = entities.KindStorageFailure
		}
	}

	writeJSON(w, status, ErrorResponse{Error: message, Kind: string(kind)})
}

func statusForKind(kind entities.ErrorKind) int {
	switch kind {
	case entities.KindInvalidInput:
		return http.StatusBadRequest
	case entities.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case entities.KindNotFound:
		return http.StatusNotFound
	case entities.KindAlreadyProcessed, entities.KindNoTicketsSold:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
