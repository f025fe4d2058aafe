package response

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/matching"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
	"github.com/MrJamesThe3rd/offertory/internal/reconcile"
)

// URLSigner issues viewing URLs for stored receipt images.
type URLSigner interface {
	SignedURL(path string) (string, error)
}

type Transaction struct {
	ID           uuid.UUID `json:"id"`
	Date         string    `json:"date"`
	Amount       string    `json:"amount"`
	Description  string    `json:"description"`
	Reference    *string   `json:"reference,omitempty"`
	IsReconciled bool      `json:"is_reconciled"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewTransaction(tx *ledger.Transaction) Transaction {
	resp := Transaction{
		ID:           tx.ID,
		Amount:       tx.Amount.StringFixed(2),
		Description:  tx.Description,
		Reference:    tx.Reference,
		IsReconciled: tx.IsReconciled,
		CreatedAt:    tx.CreatedAt,
	}

	if !tx.Date.IsZero() {
		resp.Date = tx.Date.Format(time.DateOnly)
	}

	return resp
}

func NewTransactionList(txs []*ledger.Transaction) []Transaction {
	list := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		list = append(list, NewTransaction(tx))
	}

	return list
}

type Extracted struct {
	Amount               *string `json:"amount,omitempty"`
	Date                 *string `json:"date,omitempty"`
	Reference            *string `json:"reference,omitempty"`
	SenderName           *string `json:"sender_name,omitempty"`
	BeneficiaryName      *string `json:"beneficiary_name,omitempty"`
	IsCorrectBeneficiary *bool   `json:"is_correct_beneficiary,omitempty"`
}

type Receipt struct {
	ID                  uuid.UUID      `json:"id"`
	ActivityID          uuid.UUID      `json:"activity_id"`
	Status              receipt.Status `json:"status"`
	ClaimedAmount       *string        `json:"claimed_amount,omitempty"`
	Extracted           Extracted      `json:"extracted"`
	FraudRisk           bool           `json:"fraud_risk"`
	ReceiptURL          string         `json:"receipt_url,omitempty"`
	LinkedTransactionID *uuid.UUID     `json:"linked_transaction_id,omitempty"`
	VerificationNote    string         `json:"verification_note,omitempty"`
	VerifiedAt          *time.Time     `json:"verified_at,omitempty"`
	VerifiedBy          string         `json:"verified_by,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NewReceipt renders r. With a nil signer, or on signing failure, the URL is left out.
func NewReceipt(r *receipt.Receipt, urls URLSigner) Receipt {
	resp := Receipt{
		ID:                  r.ID,
		ActivityID:          r.ActivityID,
		Status:              r.Status,
		FraudRisk:           r.FraudRisk(),
		LinkedTransactionID: r.LinkedTransactionID,
		VerificationNote:    r.VerificationNote,
		VerifiedAt:          r.VerifiedAt,
		VerifiedBy:          r.VerifiedBy,
		CreatedAt:           r.CreatedAt,
		Extracted: Extracted{
			Reference:            r.Extracted.Reference,
			SenderName:           r.Extracted.SenderName,
			BeneficiaryName:      r.Extracted.BeneficiaryName,
			IsCorrectBeneficiary: r.Extracted.IsCorrectBeneficiary,
		},
	}

	if r.ClaimedAmount != nil {
		resp.ClaimedAmount = new(r.ClaimedAmount.StringFixed(2))
	}

	if r.Extracted.Amount != nil {
		resp.Extracted.Amount = new(r.Extracted.Amount.StringFixed(2))
	}

	if r.Extracted.Date != nil {
		resp.Extracted.Date = new(r.Extracted.Date.Format(time.DateOnly))
	}

	if urls != nil && r.ReceiptPath != "" {
		u, err := urls.SignedURL(r.ReceiptPath)
		if err != nil {
			slog.Warn("failed to sign receipt url", "receipt_id", r.ID, "error", err)
		} else {
			resp.ReceiptURL = u
		}
	}

	return resp
}

type Candidate struct {
	Transaction Transaction   `json:"transaction"`
	Tier        matching.Tier `json:"tier"`
	Confidence  int           `json:"confidence"`
}

func NewCandidate(c matching.Candidate) Candidate {
	return Candidate{Transaction: NewTransaction(c.Transaction), Tier: c.Tier, Confidence: c.Confidence}
}

// Suggestions is the ranked candidate list of one open receipt.
type Suggestions struct {
	Tier        matching.Tier `json:"tier"`
	Priority    int           `json:"priority"`
	TopMatch    *Candidate    `json:"top_match,omitempty"`
	Suggestions []Candidate   `json:"suggestions"`
}

func NewSuggestions(item reconcile.PendingItem) Suggestions {
	resp := Suggestions{
		Tier:        item.Tier,
		Priority:    item.Priority,
		Suggestions: make([]Candidate, 0, len(item.Suggestions)),
	}

	for _, c := range item.Suggestions {
		resp.Suggestions = append(resp.Suggestions, NewCandidate(c))
	}

	if item.TopMatch != nil {
		resp.TopMatch = new(NewCandidate(*item.TopMatch))
	}

	return resp
}

type Pending struct {
	Receipt Receipt `json:"receipt"`
	Suggestions
}

func NewPending(item reconcile.PendingItem, urls URLSigner) Pending {
	return Pending{Receipt: NewReceipt(item.Receipt, urls), Suggestions: NewSuggestions(item)}
}

func NewPendingList(items []reconcile.PendingItem, urls URLSigner) []Pending {
	list := make([]Pending, 0, len(items))
	for _, item := range items {
		list = append(list, NewPending(item, urls))
	}

	return list
}

type Verified struct {
	Receipt     Receipt      `json:"receipt"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

func NewVerified(item reconcile.VerifiedItem, urls URLSigner) Verified {
	resp := Verified{Receipt: NewReceipt(item.Receipt, urls)}
	if item.Transaction != nil {
		resp.Transaction = new(NewTransaction(item.Transaction))
	}

	return resp
}

func NewVerifiedList(items []reconcile.VerifiedItem, urls URLSigner) []Verified {
	list := make([]Verified, 0, len(items))
	for _, item := range items {
		list = append(list, NewVerified(item, urls))
	}

	return list
}
