package bankcsv

import (
	"errors"

	"github.com/shopspring/decimal"
)

var errNoAmount = errors.New("no amount")

// parseMovement returns the credited amount. credit is false for debits and zero movements.
func parseMovement(p *Profile, cols colIndex, row []string) (decimal.Decimal, bool, error) {
	switch p.AmountMode {
	case amountSplit:
		return parseSplit(p, cellValue(row, cols.index(p.DebitCol)), cellValue(row, cols.index(p.CreditCol)))
	default:
		return parseSigned(p, cellValue(row, cols.index(p.AmountCol)))
	}
}

func parseSigned(p *Profile, s string) (decimal.Decimal, bool, error) {
	if s == "" {
		return decimal.Zero, false, errNoAmount
	}

	d, err := parseAmount(s, p.Numbers)
	if err != nil {
		return decimal.Zero, false, err
	}

	if !d.IsPositive() {
		return decimal.Zero, false, nil
	}

	return d, true, nil
}

func parseSplit(p *Profile, debit, credit string) (decimal.Decimal, bool, error) {
	if credit != "" {
		d, err := parseAmount(credit, p.Numbers)
		if err != nil {
			return decimal.Zero, false, err
		}

		if !d.IsZero() {
			return d.Abs(), true, nil
		}
	}

	if debit != "" {
		if _, err := parseAmount(debit, p.Numbers); err != nil {
			return decimal.Zero, false, err
		}

		return decimal.Zero, false, nil
	}

	if credit == "" {
		return decimal.Zero, false, errNoAmount
	}

	return decimal.Zero, false, nil
}
