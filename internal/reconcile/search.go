package reconcile

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

// ManualSearch lets staff look past the tiers: it returns unreconciled transactions whose description,
// amount or reference contains query, ignoring case. A blank query returns all of them.
func (e *Engine) ManualSearch(ctx context.Context, receiptID uuid.UUID, query string) ([]*ledger.Transaction, error) {
	if _, err := e.receipts.Get(ctx, receiptID); err != nil {
		return nil, lookupError("get receipt", err)
	}

	pool, err := e.ledger.List(ctx, ledger.ListFilter{Unreconciled: true})
	if err != nil {
		return nil, &PersistenceError{Op: "list transactions", Err: err}
	}

	q := strings.ToLower(strings.TrimSpace(query))

	var found []*ledger.Transaction

	for _, tx := range pool {
		if tx.IsReconciled {
			continue
		}

		if q == "" || searchable(tx, q) {
			found = append(found, tx)
		}
	}

	return found, nil
}

func searchable(tx *ledger.Transaction, q string) bool {
	fields := []string{
		tx.Description,
		tx.Amount.String(),
		tx.Amount.StringFixed(2),
		tx.ReferenceValue(),
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}

	return false
}
