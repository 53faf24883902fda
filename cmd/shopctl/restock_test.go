package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

func writeFeed(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseReceipt(t *testing.T) {
	tests := []struct {
		line    string
		want    receipt
		wantErr bool
	}{
		{line: "r1,p1,3", want: receipt{ID: "r1", ProductID: "p1", Quantity: 3}},
		{line: " r2 , p2 , 10 ", want: receipt{ID: "r2", ProductID: "p2", Quantity: 10}},
		{line: "r3,p3", wantErr: true},
		{line: "r4,p4,0", wantErr: true},
		{line: "r5,p5,-2", wantErr: true},
		{line: "r6,p6,many", wantErr: true},
		{line: ",p7,1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseReceipt(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanFeed(t *testing.T) {
	var got []receipt
	err := scanFeed(context.Background(), strings.NewReader("receipt_id,product_id,quantity\nr1,p1,2\n\nr2,p1,1\n"), func(r receipt) {
		got = append(got, r)
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	err = scanFeed(context.Background(), strings.NewReader("r1,p1,2\nbroken\n"), func(receipt) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReceiptSet(t *testing.T) {
	s := newReceiptSet(10)
	in := []receipt{
		{ID: "r1", ProductID: "p1", Quantity: 1},
		{ID: "r2", ProductID: "p1", Quantity: 1},
		{ID: "r1", ProductID: "p1", Quantity: 1},
	}
	for _, r := range in {
		s.observe(r.ID)
	}
	unique, dups := s.dedupe(in)
	assert.Equal(t, 1, dups)
	assert.Equal(t, []string{"r1", "r2"}, receiptIDs(unique))
}

func TestReceiptSet_OnlySuspectsCheckedExactly(t *testing.T) {
	const n = 5000
	s := newReceiptSet(n)
	in := make([]receipt, 0, n)
	for i := range n {
		r := receipt{ID: "bulk-" + strconv.Itoa(i), ProductID: "p1", Quantity: 1}
		s.observe(r.ID)
		in = append(in, r)
	}
	// Distinct IDs only become suspects through false positives.
	assert.Less(t, len(s.suspects), n/100)

	unique, dups := s.dedupe(in)
	assert.Zero(t, dups, "false positives must not drop new receipts")
	assert.Len(t, unique, n)
}

func receiptIDs(rs []receipt) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestCollectRestock_DedupesAcrossFiles(t *testing.T) {
	a := writeFeed(t, "receipt_id,product_id,quantity", "r1,p1,5", "r2,p2,1", "r1,p1,5")
	b := writeFeed(t, "r2,p2,1", "r3,p1,2")

	summary, err := collectRestock(context.Background(), zap.NewNop(), []string{a, b}, newReceiptSet(16))
	require.NoError(t, err)
	assert.Len(t, summary.Receipts, 3)
	assert.Equal(t, 2, summary.Duplicates)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, receiptIDs(summary.Receipts))
	assert.Equal(t, map[string]int{"p1": 7, "p2": 1}, summary.byProduct())
}

func TestCollectRestock_BadFile(t *testing.T) {
	bad := writeFeed(t, "r1,p1,notanumber")
	_, err := collectRestock(context.Background(), zap.NewNop(), []string{bad}, newReceiptSet(16))
	require.Error(t, err)

	_, err = collectRestock(context.Background(), zap.NewNop(), []string{filepath.Join(t.TempDir(), "missing.gz")}, newReceiptSet(16))
	require.Error(t, err)
}

// fakeLedger remembers applied receipt IDs across calls and applies a batch
// only if every new receipt names a known product.
type fakeLedger struct {
	stock   map[string]int
	applied map[string]bool
}

func (f *fakeLedger) ApplyReceipts(_ context.Context, receipts []product.Receipt) (*product.RestockResult, error) {
	res := &product.RestockResult{ByProduct: make(map[string]int)}
	var fresh []product.Receipt
	for _, r := range receipts {
		if f.applied[r.ID] {
			res.AlreadyApplied++
			continue
		}
		if _, ok := f.stock[r.ProductID]; !ok {
			return nil, product.ErrNotFound
		}
		fresh = append(fresh, r)
	}
	for _, r := range fresh {
		f.applied[r.ID] = true
		f.stock[r.ProductID] += r.Quantity
		res.ByProduct[r.ProductID] += r.Quantity
		res.Applied++
	}
	return res, nil
}

func TestApplyRestock_ReplayIsNoop(t *testing.T) {
	ledger := &fakeLedger{stock: map[string]int{"p1": 0, "p2": 4}, applied: map[string]bool{}}
	feed := writeFeed(t, "r1,p1,5", "r2,p2,1", "r3,p1,2")
	ctx := context.Background()

	for range 2 {
		summary, err := collectRestock(ctx, zap.NewNop(), []string{feed}, newReceiptSet(16))
		require.NoError(t, err)
		require.NoError(t, applyRestock(ctx, zap.NewNop(), ledger, summary))
	}
	assert.Equal(t, map[string]int{"p1": 7, "p2": 5}, ledger.stock)

	err := applyRestock(ctx, zap.NewNop(), ledger, &restockSummary{Receipts: []receipt{
		{ID: "r4", ProductID: "p1", Quantity: 1},
		{ID: "r5", ProductID: "zz", Quantity: 1},
	}})
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, map[string]int{"p1": 7, "p2": 5}, ledger.stock, "failed restock leaves stock untouched")
}
