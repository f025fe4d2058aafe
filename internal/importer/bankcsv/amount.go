package bankcsv

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarks = strings.NewReplacer("EUR", "", "€", "", " ", "", "\u00a0", "")

// parseAmount parses a statement amount. "1.234,56" is 1234.56 in the European style, "-1,234.56" is
// -1234.56 in the plain style.
func parseAmount(s string, style numberStyle) (decimal.Decimal, error) {
	clean := currencyMarks.Replace(strings.TrimSpace(s))

	switch style {
	case numbersEuropean:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case numbersPlain:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
