// Package response renders JSON bodies and maps domain errors to HTTP statuses.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/offertory/internal/importer/bankcsv"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type claimedBody struct {
	Error         string       `json:"error"`
	TransactionID string       `json:"transaction_id"`
	Refreshed     *Suggestions `json:"refreshed,omitempty"`
}

func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, err error) {
	var claimErr *reconcile.AlreadyReconciledError
	if errors.As(err, &claimErr) {
		body := claimedBody{Error: claimErr.Error(), TransactionID: claimErr.TransactionID.String()}
		if claimErr.Refreshed != nil {
			body.Refreshed = new(NewSuggestions(*claimErr.Refreshed))
		}

		JSON(w, http.StatusConflict, body)

		return
	}

	JSON(w, Status(err), errorBody{Error: message(err)})
}

// Status maps a domain error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrNotFound),
		errors.Is(err, receipt.ErrNotFound),
		errors.Is(err, receipt.ErrActivityNotFound),
		errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrAlreadyReconciled):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrInvalidTransition), errors.Is(err, receipt.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, bankcsv.ErrUnknownFormat):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		return "internal error"
	}

	return err.Error()
}
