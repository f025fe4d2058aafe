package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/offertory/internal/http/response"
	"github.com/MrJamesThe3rd/offertory/internal/importer"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

const maxUploadSize = 10 << 20

//go:generate mockgen -source=handler.go -destination=handler_mock.go -package=ledger
type Engine interface {
	Ledger(ctx context.Context) ([]*ledger.Transaction, error)
}

type Importer interface {
	Import(ctx context.Context, profile string, r io.Reader) (*importer.Result, error)
	Confirm(ctx context.Context, params []ledger.CreateParams) ([]*ledger.Transaction, error)
}

type Handler struct {
	engine   Engine
	importer Importer
	loc      *time.Location
}

func NewHandler(engine Engine, imp Importer, loc *time.Location) *Handler {
	return &Handler{engine: engine, importer: imp, loc: loc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/import", h.importStatement)
	r.Post("/import/confirm", h.confirmImport)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	txs, err := h.engine.Ledger(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.NewTransactionList(txs))
}

type rowDTO struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   *string         `json:"reference,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO               `json:"incoming"`
	Existing response.Transaction `json:"existing"`
}

type importSuccessResponse struct {
	Profile      string                 `json:"profile"`
	Imported     int                    `json:"imported"`
	Dropped      int                    `json:"dropped"`
	Skipped      int                    `json:"skipped"`
	Transactions []response.Transaction `json:"transactions"`
}

type importConflictResponse struct {
	Profile   string        `json:"profile"`
	Dropped   int           `json:"dropped"`
	Skipped   int           `json:"skipped"`
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	Params []rowDTO `json:"params"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	res, err := h.importer.Import(r.Context(), r.FormValue("profile"), file)
	if err != nil {
		response.Error(w, err)
		return
	}

	if len(res.Conflicts) > 0 {
		resp := importConflictResponse{
			Profile:   res.Profile,
			Dropped:   res.Dropped,
			Skipped:   res.Skipped,
			New:       make([]rowDTO, 0, len(res.New)),
			Conflicts: make([]conflictDTO, 0, len(res.Conflicts)),
		}

		for _, p := range res.New {
			resp.New = append(resp.New, toRowDTO(p))
		}

		for _, c := range res.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: response.NewTransaction(c.Existing),
			})
		}

		response.JSON(w, http.StatusConflict, resp)

		return
	}

	response.JSON(w, http.StatusCreated, importSuccessResponse{
		Profile:      res.Profile,
		Imported:     len(res.Imported),
		Dropped:      res.Dropped,
		Skipped:      res.Skipped,
		Transactions: response.NewTransactionList(res.Imported),
	})
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	params := make([]ledger.CreateParams, 0, len(req.Params))

	for _, p := range req.Params {
		date, err := time.ParseInLocation(time.DateOnly, p.Date, h.loc)
		if err != nil {
			response.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}

		if !p.Amount.IsPositive() {
			response.BadRequest(w, "amount must be positive")
			return
		}

		params = append(params, ledger.CreateParams{
			Date:        date,
			Amount:      p.Amount,
			Description: p.Description,
			Reference:   p.Reference,
		})
	}

	txs, err := h.importer.Confirm(r.Context(), params)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, importSuccessResponse{
		Imported:     len(txs),
		Transactions: response.NewTransactionList(txs),
	})
}

func toRowDTO(p ledger.CreateParams) rowDTO {
	return rowDTO{
		Date:        p.Date.Format(time.DateOnly),
		Amount:      p.Amount,
		Description: p.Description,
		Reference:   p.Reference,
	}
}
