package order

import "context"

// IdempotencyStore binds client-supplied idempotency keys to committed
// orders so a retried commit returns the first order instead of placing a
// second one.
type IdempotencyStore interface {
	// Reserve claims key for a new commit. If the key is already taken it
	// returns claimed=false and the bound order ID, which is empty while the
	// first commit is still running.
	Reserve(ctx context.Context, key string) (orderID string, claimed bool, err error)
	// Complete binds a reserved key to the committed order.
	Complete(ctx context.Context, key, orderID string) error
	// Release frees a reserved key after a failed commit.
	Release(ctx context.Context, key string) error
}

// NopIdempotency claims every key and remembers nothing.
type NopIdempotency struct{}

var _ IdempotencyStore = NopIdempotency{}

func (NopIdempotency) Reserve(context.Context, string) (string, bool, error) { return "", true, nil }
func (NopIdempotency) Complete(context.Context, string, string) error        { return nil }
func (NopIdempotency) Release(context.Context, string) error                 { return nil }
