package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

const (
	restockBatchSize = 5000

	recordReceiptsSQL = `INSERT INTO restock_receipts (receipt_id, product_id, quantity)
		SELECT * FROM unnest($1::text[], $2::text[], $3::integer[])
		ON CONFLICT (receipt_id) DO NOTHING
		RETURNING product_id, quantity`
)

var _ product.Restocker = (*RestockRepository)(nil)

// RestockRepository applies restock receipts exactly once, using the
// restock_receipts table as the ledger of applied receipt IDs.
type RestockRepository struct {
	pool *pgxpool.Pool
}

// NewRestockRepository creates a RestockRepository.
func NewRestockRepository(pool *pgxpool.Pool) *RestockRepository {
	return &RestockRepository{pool: pool}
}

// ApplyReceipts records receipts and increments stock for the newly recorded
// ones in a single transaction.
func (r *RestockRepository) ApplyReceipts(ctx context.Context, receipts []product.Receipt) (*product.RestockResult, error) {
	res := &product.RestockResult{ByProduct: make(map[string]int)}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(receipts); start += restockBatchSize {
			batch := receipts[start:min(start+restockBatchSize, len(receipts))]
			inserted, err := recordReceipts(ctx, tx, batch, res.ByProduct)
			if err != nil {
				return err
			}
			res.Applied += inserted
			res.AlreadyApplied += len(batch) - inserted
		}

		ids := make([]string, 0, len(res.ByProduct))
		for id := range res.ByProduct {
			ids = append(ids, id)
		}
		// Fixed lock order.
		sort.Strings(ids)
		stock := &ProductRepository{q: tx}
		for _, id := range ids {
			if err := stock.IncrementStock(ctx, id, res.ByProduct[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func recordReceipts(ctx context.Context, q querier, batch []product.Receipt, byProduct map[string]int) (int, error) {
	var (
		ids        = make([]string, len(batch))
		productIDs = make([]string, len(batch))
		quantities = make([]int32, len(batch))
	)
	for i, rc := range batch {
		ids[i], productIDs[i], quantities[i] = rc.ID, rc.ProductID, int32(rc.Quantity)
	}

	rows, err := q.Query(ctx, recordReceiptsSQL, ids, productIDs, quantities)
	if err != nil {
		return 0, fmt.Errorf("recording receipts: %w", err)
	}
	inserted := 0
	var (
		productID string
		qty       int
	)
	_, err = pgx.ForEachRow(rows, []any{&productID, &qty}, func() error {
		inserted++
		byProduct[productID] += qty
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, product.ErrNotFound
		}
		return 0, fmt.Errorf("recording receipts: %w", err)
	}
	return inserted, nil
}
