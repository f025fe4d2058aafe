package receipt

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/auth"
	"github.com/MrJamesThe3rd/offertory/internal/http/response"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=receipt
type Engine interface {
	ManualSearch(ctx context.Context, receiptID uuid.UUID, query string) ([]*ledger.Transaction, error)
	Verify(ctx context.Context, params reconcile.VerifyParams) (*reconcile.VerifiedItem, error)
}

type Rejecter interface {
	Reject(ctx context.Context, id uuid.UUID, note, rejectedBy string) (*receipt.Receipt, error)
}

type Handler struct {
	engine   Engine
	receipts Rejecter
	urls     response.URLSigner
}

func NewHandler(engine Engine, receipts Rejecter, urls response.URLSigner) *Handler {
	return &Handler{engine: engine, receipts: receipts, urls: urls}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/search", h.search)
	r.Post("/{id}/verify", h.verify)
	r.Post("/{id}/reject", h.reject)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	txs, err := h.engine.ManualSearch(r.Context(), id, r.URL.Query().Get("q"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewTransactionList(txs))
}

type verifyRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Note          string    `json:"note"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if req.TransactionID == uuid.Nil {
		response.BadRequest(w, "transaction_id is required")
		return
	}

	staff, err := auth.StaffFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	item, err := h.engine.Verify(r.Context(), reconcile.VerifyParams{
		ReceiptID:     id,
		TransactionID: req.TransactionID,
		Note:          req.Note,
		VerifiedBy:    staff,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewVerified(*item, h.urls))
}

type rejectRequest struct {
	Note string `json:"note"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	staff, err := auth.StaffFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	rc, err := h.receipts.Reject(r.Context(), id, req.Note, staff)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewReceipt(rc, h.urls))
}
