package product

import "context"

// Receipt is one inbound delivery of stock. Receipt IDs are unique across
// every feed ever applied.
type Receipt struct {
	ID        string
	ProductID string
	Quantity  int
}

// RestockResult summarizes a batch of receipts.
type RestockResult struct {
	// Applied counts receipts recorded by this batch.
	Applied int
	// AlreadyApplied counts receipts recorded by an earlier batch.
	AlreadyApplied int
	// ByProduct holds the units added per product.
	ByProduct map[string]int
}

// Restocker records receipts and adds their quantities to stock. A receipt
// is applied at most once; the whole batch fails with ErrNotFound if any
// new receipt names an unknown product.
type Restocker interface {
	ApplyReceipts(ctx context.Context, receipts []Receipt) (*RestockResult, error)
}
