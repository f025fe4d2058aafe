// Package matching ranks bank transactions against a payment receipt.
//
// Tiers are evaluated in strict order and the first tier with any candidate wins:
// a reference match is perfect, amount plus same calendar day is high, amount plus
// an adjacent calendar day is medium. Everything else is none.
package matching

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
)

type Tier string

const (
	TierPerfect Tier = "perfect"
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierNone    Tier = "none"
)

func (t Tier) Confidence() int {
	switch t {
	case TierPerfect:
		return 100
	case TierHigh:
		return 90
	case TierMedium:
		return 70
	}

	return 0
}

// Priority orders the pending queue; lower sorts first.
func (t Tier) Priority() int {
	switch t {
	case TierPerfect:
		return 0
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	}

	return 3
}

// AmountTolerance is the exclusive bound on |transaction - receipt| for amount tiers.
var AmountTolerance = decimal.New(1, -2)

type Candidate struct {
	Transaction *ledger.Transaction
	Tier        Tier
	Confidence  int
}

type Result struct {
	Tier       Tier
	Candidates []Candidate
}

// Top returns the first candidate of the winning tier, or nil.
func (r Result) Top() *Candidate {
	if len(r.Candidates) == 0 {
		return nil
	}

	return &r.Candidates[0]
}

type Matcher struct {
	loc *time.Location
}

// NewMatcher returns a matcher comparing calendar days in loc.
func NewMatcher(loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}

	return &Matcher{loc: loc}
}

// Match is pure: the same receipt and pool always give the same result, candidates in pool order.
// Reconciled and non-matchable transactions in pool are ignored.
func (m *Matcher) Match(r *receipt.Receipt, pool []*ledger.Transaction) Result {
	eligible := make([]*ledger.Transaction, 0, len(pool))
	for _, tx := range pool {
		if tx == nil || tx.IsReconciled || !tx.Matchable() {
			continue
		}

		eligible = append(eligible, tx)
	}

	if ref := normalizeReference(r.Extracted.Reference); ref != "" {
		if c := collect(eligible, TierPerfect, func(tx *ledger.Transaction) bool {
			return normalizeReference(tx.Reference) == ref
		}); len(c) > 0 {
			return Result{Tier: TierPerfect, Candidates: c}
		}
	}

	amount, ok := r.Amount()
	if !ok || r.Extracted.Date == nil {
		return Result{Tier: TierNone}
	}

	day := *r.Extracted.Date

	if c := collect(eligible, TierHigh, func(tx *ledger.Transaction) bool {
		return withinTolerance(tx.Amount, amount) && DayDistance(tx.Date, day, m.loc) == 0
	}); len(c) > 0 {
		return Result{Tier: TierHigh, Candidates: c}
	}

	if c := collect(eligible, TierMedium, func(tx *ledger.Transaction) bool {
		return withinTolerance(tx.Amount, amount) && DayDistance(tx.Date, day, m.loc) == 1
	}); len(c) > 0 {
		return Result{Tier: TierMedium, Candidates: c}
	}

	return Result{Tier: TierNone}
}

func collect(pool []*ledger.Transaction, tier Tier, keep func(*ledger.Transaction) bool) []Candidate {
	var candidates []Candidate

	for _, tx := range pool {
		if keep(tx) {
			candidates = append(candidates, Candidate{Transaction: tx, Tier: tier, Confidence: tier.Confidence()})
		}
	}

	return candidates
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(AmountTolerance)
}

func normalizeReference(ref *string) string {
	if ref == nil {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(*ref))
}
