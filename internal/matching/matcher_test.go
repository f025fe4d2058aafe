package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/receipt"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(amount string, date time.Time, ref *string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:          uuid.New(),
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Description: "TRF " + amount,
		Reference:   ref,
	}
}

func rcpt(amount string, date *time.Time, ref *string) *receipt.Receipt {
	r := &receipt.Receipt{ID: uuid.New(), Status: receipt.StatusPending}
	if amount != "" {
		r.Extracted.Amount = new(decimal.RequireFromString(amount))
	}

	r.Extracted.Date = date
	r.Extracted.Reference = ref

	return r
}

func TestMatcher_Scenarios(t *testing.T) {
	m := NewMatcher(time.UTC)

	t.Run("ReferenceWinsPerfect", func(t *testing.T) {
		byRef := tx("50", day(2024, 5, 1), new("abc123"))
		noRef := tx("50", day(2024, 5, 1), nil)

		res := m.Match(rcpt("50", new(day(2024, 5, 1)), new("ABC123")), []*ledger.Transaction{noRef, byRef})

		require.NotNil(t, res.Top())
		assert.Equal(t, TierPerfect, res.Tier)
		assert.Equal(t, byRef, res.Top().Transaction)
		assert.Equal(t, 100, res.Top().Confidence)
		assert.Len(t, res.Candidates, 1)
	})

	t.Run("SameDayHigh", func(t *testing.T) {
		res := m.Match(rcpt("75.00", new(day(2024, 6, 10)), nil), []*ledger.Transaction{tx("75.00", day(2024, 6, 10), nil)})

		assert.Equal(t, TierHigh, res.Tier)
		assert.Equal(t, 90, res.Top().Confidence)
	})

	t.Run("NextDayMedium", func(t *testing.T) {
		res := m.Match(rcpt("75.00", new(day(2024, 6, 10)), nil), []*ledger.Transaction{tx("75.00", day(2024, 6, 11), nil)})

		assert.Equal(t, TierMedium, res.Tier)
		assert.Equal(t, 70, res.Top().Confidence)
	})

	t.Run("ThreeDaysNone", func(t *testing.T) {
		res := m.Match(rcpt("75.00", new(day(2024, 6, 10)), nil), []*ledger.Transaction{tx("75.00", day(2024, 6, 13), nil)})

		assert.Equal(t, TierNone, res.Tier)
		assert.Nil(t, res.Top())
		assert.Equal(t, 3, res.Tier.Priority())
	})
}

func TestMatcher_AmountTolerance(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	testCases := []struct {
		name     string
		txAmount string
		expected Tier
	}{
		{name: "Exact", txAmount: "75.00", expected: TierHigh},
		{name: "JustInside", txAmount: "75.009", expected: TierHigh},
		{name: "JustInsideBelow", txAmount: "74.991", expected: TierHigh},
		{name: "ExactlyOneCent", txAmount: "75.01", expected: TierNone},
		{name: "TwoCents", txAmount: "75.02", expected: TierNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := m.Match(rcpt("75.00", &d, nil), []*ledger.Transaction{tx(tc.txAmount, d, nil)})
			assert.Equal(t, tc.expected, res.Tier)
		})
	}
}

func TestMatcher_TwoDaysIsNeverMedium(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	pool := []*ledger.Transaction{
		tx("20", day(2024, 6, 8), nil),
		tx("20", day(2024, 6, 12), nil),
	}

	res := m.Match(rcpt("20", &d, nil), pool)
	assert.Equal(t, TierNone, res.Tier)
	assert.Empty(t, res.Candidates)
}

func TestMatcher_TierShortCircuit(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	sameDay := tx("30", d, nil)
	nextDay := tx("30", day(2024, 6, 11), nil)
	prevDay := tx("30", day(2024, 6, 9), nil)
	byRef := tx("999", day(2023, 1, 1), new("  Ref-77 "))

	t.Run("PerfectHidesAmountTiers", func(t *testing.T) {
		res := m.Match(rcpt("30", &d, new("ref-77")), []*ledger.Transaction{sameDay, nextDay, byRef})

		assert.Equal(t, TierPerfect, res.Tier)
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, byRef, res.Candidates[0].Transaction)
	})

	t.Run("HighHidesMedium", func(t *testing.T) {
		res := m.Match(rcpt("30", &d, nil), []*ledger.Transaction{nextDay, sameDay})

		assert.Equal(t, TierHigh, res.Tier)
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, sameDay, res.Candidates[0].Transaction)
	})

	t.Run("MediumKeepsLedgerOrder", func(t *testing.T) {
		res := m.Match(rcpt("30", &d, nil), []*ledger.Transaction{nextDay, prevDay})

		assert.Equal(t, TierMedium, res.Tier)
		require.Len(t, res.Candidates, 2)
		assert.Equal(t, nextDay, res.Candidates[0].Transaction)
		assert.Equal(t, prevDay, res.Candidates[1].Transaction)
	})

	t.Run("UnmatchedReferenceFallsThrough", func(t *testing.T) {
		res := m.Match(rcpt("30", &d, new("nope")), []*ledger.Transaction{sameDay, byRef})

		assert.Equal(t, TierHigh, res.Tier)
	})

	t.Run("BlankReferenceIgnored", func(t *testing.T) {
		blank := tx("1", d, new("   "))
		res := m.Match(rcpt("30", &d, new(" ")), []*ledger.Transaction{blank, sameDay})

		assert.Equal(t, TierHigh, res.Tier)
		assert.Equal(t, sameDay, res.Top().Transaction)
	})
}

func TestMatcher_SkipsIneligible(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	reconciled := tx("10", d, new("R1"))
	reconciled.IsReconciled = true

	undated := tx("10", time.Time{}, new("R1"))
	negative := tx("-10", d, new("R1"))

	res := m.Match(rcpt("10", &d, new("r1")), []*ledger.Transaction{reconciled, undated, negative, nil})
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatcher_ZeroAmountIsMatchable(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	zero := tx("0", d, new("ABC"))

	res := m.Match(rcpt("0", &d, new("abc")), []*ledger.Transaction{zero})
	require.Equal(t, TierPerfect, res.Tier)
	assert.Equal(t, zero, res.Top().Transaction)

	res = m.Match(rcpt("0.00", &d, nil), []*ledger.Transaction{zero})
	assert.Equal(t, TierHigh, res.Tier)
}

func TestMatcher_ClaimedAmountFallback(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	r := rcpt("", &d, nil)
	r.ClaimedAmount = new(decimal.RequireFromString("12.50"))

	res := m.Match(r, []*ledger.Transaction{tx("12.5", d, nil)})
	assert.Equal(t, TierHigh, res.Tier)

	r.ClaimedAmount = nil
	res = m.Match(r, []*ledger.Transaction{tx("12.5", d, nil)})
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatcher_NoDateOnlyReference(t *testing.T) {
	m := NewMatcher(time.UTC)

	res := m.Match(rcpt("40", nil, nil), []*ledger.Transaction{tx("40", day(2024, 6, 10), nil)})
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatcher_OperatingTimezone(t *testing.T) {
	plusOne := time.FixedZone("UTC+1", 3600)

	// 23:30 UTC on the 10th is already the 11th one hour east.
	lateNight := time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC)
	posted := time.Date(2024, 6, 11, 0, 0, 0, 0, plusOne)

	pool := []*ledger.Transaction{tx("15", posted, nil)}

	assert.Equal(t, TierHigh, NewMatcher(plusOne).Match(rcpt("15", &lateNight, nil), pool).Tier)
	assert.Equal(t, 0, DayDistance(lateNight, posted, plusOne))
	assert.Equal(t, 1, DayDistance(lateNight, time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC), time.UTC))
}

func TestMatcher_Deterministic(t *testing.T) {
	m := NewMatcher(time.UTC)
	d := day(2024, 6, 10)

	pool := []*ledger.Transaction{
		tx("5", day(2024, 6, 9), nil),
		tx("5", day(2024, 6, 11), nil),
		tx("5", day(2024, 6, 11), nil),
	}
	r := rcpt("5", &d, nil)

	first := m.Match(r, pool)
	for range 5 {
		assert.Equal(t, first, m.Match(r, pool))
	}
}

func TestTier_ConfidenceAndPriority(t *testing.T) {
	testCases := []struct {
		tier       Tier
		confidence int
		priority   int
	}{
		{tier: TierPerfect, confidence: 100, priority: 0},
		{tier: TierHigh, confidence: 90, priority: 1},
		{tier: TierMedium, confidence: 70, priority: 2},
		{tier: TierNone, confidence: 0, priority: 3},
	}

	for _, tc := range testCases {
		t.Run(string(tc.tier), func(t *testing.T) {
			assert.Equal(t, tc.confidence, tc.tier.Confidence())
			assert.Equal(t, tc.priority, tc.tier.Priority())
		})
	}
}
