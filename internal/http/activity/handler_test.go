package activity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/matching"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
	"github.com/MrJamesThe3rd/offertory/internal/storage"
)

type fixture struct {
	engine   *MockEngine
	receipts *MockReceipts
	router   chi.Router
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{engine: NewMockEngine(ctrl), receipts: NewMockReceipts(ctrl), router: chi.NewRouter()}

	signer := storage.NewSigner("https://files.test", "k", time.Minute)
	f.router.Route("/activities", NewHandler(f.engine, f.receipts, signer, time.UTC).Routes)

	return f
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	return rec
}

func TestHandler_CreateActivity(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		f.receipts.EXPECT().CreateActivity(gomock.Any(), "Retiro de Jovens").
			Return(&receipt.Activity{ID: uuid.New(), Name: "Retiro de Jovens"}, nil)

		rec := f.do(http.MethodPost, "/activities/", `{"name":"Retiro de Jovens"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Retiro de Jovens"`)
	})

	t.Run("BlankName", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/activities/", `{"name":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ListActivities(t *testing.T) {
	f := newFixture(t)

	f.receipts.EXPECT().ListActivities(gomock.Any()).Return([]*receipt.Activity{
		{ID: uuid.New(), Name: "Peregrinação"},
		{ID: uuid.New(), Name: "Catequese"},
	}, nil)

	rec := f.do(http.MethodGet, "/activities/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Peregrinação", got[0]["name"])
}

func TestHandler_Pending(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	tx := &ledger.Transaction{
		ID:     uuid.New(),
		Date:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Amount: decimal.RequireFromString("75"),
	}
	candidates := []matching.Candidate{{Transaction: tx, Tier: matching.TierHigh, Confidence: 90}}

	f.engine.EXPECT().ListPending(gomock.Any(), id).Return([]reconcile.PendingItem{
		{
			Receipt:     &receipt.Receipt{ID: uuid.New(), ActivityID: id, Status: receipt.StatusPending, ReceiptPath: "r1.jpg"},
			Suggestions: candidates,
			TopMatch:    &candidates[0],
			Tier:        matching.TierHigh,
			Priority:    1,
		},
		{
			Receipt:  &receipt.Receipt{ID: uuid.New(), ActivityID: id, Status: receipt.StatusSubmitted},
			Tier:     matching.TierNone,
			Priority: 3,
		},
	}, nil)

	rec := f.do(http.MethodGet, "/activities/"+id.String()+"/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []struct {
		Receipt struct {
			ReceiptURL string `json:"receipt_url"`
		} `json:"receipt"`
		Tier        string            `json:"tier"`
		Priority    int               `json:"priority"`
		TopMatch    *json.RawMessage  `json:"top_match"`
		Suggestions []json.RawMessage `json:"suggestions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 2)

	assert.Equal(t, "high", body[0].Tier)
	assert.Equal(t, 1, body[0].Priority)
	assert.NotNil(t, body[0].TopMatch)
	assert.True(t, strings.HasPrefix(body[0].Receipt.ReceiptURL, "https://files.test/r1.jpg?token="))

	assert.Equal(t, "none", body[1].Tier)
	assert.Equal(t, 3, body[1].Priority)
	assert.Nil(t, body[1].TopMatch)
	assert.Empty(t, body[1].Suggestions)
}

func TestHandler_PendingErrors(t *testing.T) {
	t.Run("InvalidID", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/activities/not-a-uuid/pending", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownActivity", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()

		f.engine.EXPECT().ListPending(gomock.Any(), id).Return(nil, reconcile.ErrNotFound)

		rec := f.do(http.MethodGet, "/activities/"+id.String()+"/pending", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Verified(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	txID := uuid.New()

	f.engine.EXPECT().ListVerified(gomock.Any(), id).Return([]reconcile.VerifiedItem{{
		Receipt:     &receipt.Receipt{ID: uuid.New(), Status: receipt.StatusVerified, LinkedTransactionID: &txID},
		Transaction: &ledger.Transaction{ID: txID, Amount: decimal.NewFromInt(20), IsReconciled: true},
	}}, nil)

	rec := f.do(http.MethodGet, "/activities/"+id.String()+"/verified", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_reconciled":true`)
	assert.Contains(t, rec.Body.String(), `"amount":"20.00"`)
}

func TestHandler_CreateReceipt(t *testing.T) {
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		f.receipts.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, p receipt.CreateParams) (*receipt.Receipt, error) {
				assert.Equal(t, id, p.ActivityID)
				assert.Equal(t, "75", p.Extracted.Amount.String())
				assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), *p.Extracted.Date)
				assert.Equal(t, "ABC123", *p.Extracted.Reference)

				return &receipt.Receipt{
					ID:         uuid.New(),
					ActivityID: p.ActivityID,
					Extracted:  p.Extracted,
					Status:     receipt.StatusSubmitted,
				}, nil
			})

		rec := f.do(http.MethodPost, "/activities/"+id.String()+"/receipts",
			`{"receipt_path":"a.jpg","extracted":{"amount":"75","date":"2024-06-10","reference":"ABC123"}}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"submitted"`)
	})

	t.Run("BadDate", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/activities/"+id.String()+"/receipts", `{"extracted":{"date":"10/06/2024"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NegativeAmount", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/activities/"+id.String()+"/receipts", `{"claimed_amount":-5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("WrongInitialStatus", func(t *testing.T) {
		f := newFixture(t)

		f.receipts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, receipt.ErrInvalidTransition)

		rec := f.do(http.MethodPost, "/activities/"+id.String()+"/receipts", `{"status":"verified"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
