package services

import (
	"context"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/store"
)

// StoreTransactionSource adapts the transaction store to the engine's
// TransactionSource.
type StoreTransactionSource struct {
	Store store.Store
}

func (s StoreTransactionSource) ListByProduct(ctx context.Context, productID string) ([]forecast.Transaction, error) {
	txns, err := s.Store.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	out := make([]forecast.Transaction, len(txns))
	for i, txn := range txns {
		out[i] = forecast.Transaction{Date: txn.Date, ProductID: txn.ProductID, Quantity: txn.Quantity}
	}
	return out, nil
}
