package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/offertory/internal/http/response"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=activity
type Engine interface {
	ListPending(ctx context.Context, activityID uuid.UUID) ([]reconcile.PendingItem, error)
	ListVerified(ctx context.Context, activityID uuid.UUID) ([]reconcile.VerifiedItem, error)
}

type Receipts interface {
	CreateActivity(ctx context.Context, name string) (*receipt.Activity, error)
	Create(ctx context.Context, params receipt.CreateParams) (*receipt.Receipt, error)
	ListActivities(ctx context.Context) ([]*receipt.Activity, error)
}

type Handler struct {
	engine   Engine
	receipts Receipts
	urls     response.URLSigner
	loc      *time.Location
}

func NewHandler(engine Engine, receipts Receipts, urls response.URLSigner, loc *time.Location) *Handler {
	return &Handler{engine: engine, receipts: receipts, urls: urls, loc: loc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.listActivities)
	r.Post("/", h.createActivity)
	r.Get("/{id}/pending", h.pending)
	r.Get("/{id}/verified", h.verified)
	r.Post("/{id}/receipts", h.createReceipt)
}

type createActivityRequest struct {
	Name string `json:"name"`
}

type activityResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.receipts.ListActivities(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, activityResponse{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt})
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		response.BadRequest(w, "name is required")
		return
	}

	a, err := h.receipts.CreateActivity(r.Context(), req.Name)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, activityResponse{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt})
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	items, err := h.engine.ListPending(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewPendingList(items, h.urls))
}

func (h *Handler) verified(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	items, err := h.engine.ListVerified(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewVerifiedList(items, h.urls))
}

type extractedRequest struct {
	Amount               *decimal.Decimal `json:"amount"`
	Date                 *string          `json:"date"`
	Reference            *string          `json:"reference"`
	SenderName           *string          `json:"sender_name"`
	BeneficiaryName      *string          `json:"beneficiary_name"`
	IsCorrectBeneficiary *bool            `json:"is_correct_beneficiary"`
}

type createReceiptRequest struct {
	ClaimedAmount *decimal.Decimal `json:"claimed_amount"`
	ReceiptPath   string           `json:"receipt_path"`
	Status        receipt.Status   `json:"status"`
	Extracted     extractedRequest `json:"extracted"`
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var req createReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if negative(req.ClaimedAmount) || negative(req.Extracted.Amount) {
		response.BadRequest(w, "amounts must not be negative")
		return
	}

	extracted := receipt.Extracted{
		Amount:               req.Extracted.Amount,
		Reference:            req.Extracted.Reference,
		SenderName:           req.Extracted.SenderName,
		BeneficiaryName:      req.Extracted.BeneficiaryName,
		IsCorrectBeneficiary: req.Extracted.IsCorrectBeneficiary,
	}

	if req.Extracted.Date != nil && *req.Extracted.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, *req.Extracted.Date, h.loc)
		if err != nil {
			response.BadRequest(w, "extracted.date must be YYYY-MM-DD")
			return
		}

		extracted.Date = &d
	}

	rc, err := h.receipts.Create(r.Context(), receipt.CreateParams{
		ActivityID:    id,
		ClaimedAmount: req.ClaimedAmount,
		Extracted:     extracted,
		ReceiptPath:   req.ReceiptPath,
		Status:        req.Status,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.NewReceipt(rc, h.urls))
}

func negative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}
