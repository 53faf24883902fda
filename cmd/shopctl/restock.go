package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
	"github.com/sushantdkl/SneakHead-sub001/internal/storage/postgres"
)

const (
	restockParseConcurrency = 4
	receiptFPR              = 0.001
)

// receipt is one line of a restock feed: receipt_id,product_id,quantity.
type receipt = product.Receipt

// receiptSet finds receipt IDs repeated within a run. The bloom filter sees
// every ID; only IDs it reports as possibly seen become suspects, and only
// suspects are compared exactly.
type receiptSet struct {
	mu       sync.Mutex
	filter   *bloom.BloomFilter
	suspects map[string]struct{}
}

func newReceiptSet(expected uint) *receiptSet {
	return &receiptSet{
		filter:   bloom.NewWithEstimates(max(expected, 1024), receiptFPR),
		suspects: make(map[string]struct{}),
	}
}

// observe records id. The first occurrence of a repeated ID is never a
// suspect, every later occurrence is.
func (s *receiptSet) observe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.TestOrAddString(id) {
		s.suspects[id] = struct{}{}
	}
}

// dedupe keeps the first receipt per ID. It must run after every ID was
// observed.
func (s *receiptSet) dedupe(receipts []receipt) (unique []receipt, duplicates int) {
	kept := make(map[string]struct{}, len(s.suspects))
	unique = receipts[:0]
	for _, r := range receipts {
		if _, suspect := s.suspects[r.ID]; suspect {
			if _, dup := kept[r.ID]; dup {
				duplicates++
				continue
			}
			kept[r.ID] = struct{}{}
		}
		unique = append(unique, r)
	}
	return unique, duplicates
}

// restockSummary holds the parsed feeds before anything is written.
type restockSummary struct {
	Receipts   []receipt
	Duplicates int
}

// byProduct sums quantities per product.
func (s *restockSummary) byProduct() map[string]int {
	out := make(map[string]int)
	for _, r := range s.Receipts {
		out[r.ProductID] += r.Quantity
	}
	return out
}

func restockCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "restock",
		Usage:     "apply gzip CSV restock feeds (receipt_id,product_id,quantity)",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "expected-receipts", Value: 1_000_000, Usage: "bloom filter sizing hint"},
			&cli.BoolFlag{Name: "dry-run", Usage: "parse and report without writing"},
		},
		Action: func(c *cli.Context) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				return errors.New("at least one feed file is required")
			}
			summary, err := collectRestock(c.Context, lg, files, newReceiptSet(c.Uint("expected-receipts")))
			if err != nil {
				return err
			}
			lg.Info("Parsed feeds",
				zap.Int("receipts", len(summary.Receipts)),
				zap.Int("duplicates", summary.Duplicates),
			)
			if c.Bool("dry-run") {
				for id, qty := range summary.byProduct() {
					lg.Info("Would restock", zap.String("product_id", id), zap.Int("quantity", qty))
				}
				return nil
			}

			pool, err := connect(c, lg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return applyRestock(c.Context, lg, postgres.NewRestockRepository(pool), summary)
		},
	}
}

// collectRestock parses files concurrently and drops receipts whose ID
// already appeared in any of the files.
func collectRestock(ctx context.Context, lg *zap.Logger, files []string, seen *receiptSet) (*restockSummary, error) {
	var (
		mu  sync.Mutex
		all []receipt
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(restockParseConcurrency)
	for _, path := range files {
		g.Go(func() error {
			var local []receipt
			err := streamFeed(ctx, path, func(r receipt) {
				seen.observe(r.ID)
				local = append(local, r)
			})
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			lg.Info("Feed parsed", zap.String("file", path), zap.Int("receipts", len(local)))

			mu.Lock()
			defer mu.Unlock()
			all = append(all, local...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	unique, dups := seen.dedupe(all)
	return &restockSummary{Receipts: unique, Duplicates: dups}, nil
}

func streamFeed(ctx context.Context, path string, fn func(receipt)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "open gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return scanFeed(ctx, gz, fn)
}

// scanFeed parses CSV lines. A leading header and blank lines are skipped.
func scanFeed(ctx context.Context, r io.Reader, fn func(receipt)) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || (line == 1 && strings.HasPrefix(text, "receipt_id,")) {
			continue
		}
		rec, err := parseReceipt(text)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		fn(rec)
	}
	return scanner.Err()
}

func parseReceipt(text string) (receipt, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 3 {
		return receipt{}, errors.Errorf("want 3 fields, got %d", len(fields))
	}
	id, productID := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
	if id == "" || productID == "" {
		return receipt{}, errors.New("receipt and product ids are required")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || qty <= 0 {
		return receipt{}, errors.Errorf("invalid quantity %q", fields[2])
	}
	return receipt{ID: id, ProductID: productID, Quantity: qty}, nil
}

// applyRestock hands the receipts to the ledger, which skips receipts applied
// by earlier runs and fails the whole batch on an unknown product.
func applyRestock(ctx context.Context, lg *zap.Logger, restocker product.Restocker, summary *restockSummary) error {
	res, err := restocker.ApplyReceipts(ctx, summary.Receipts)
	if err != nil {
		return errors.Wrap(err, "apply receipts")
	}
	lg.Info("Restock applied",
		zap.Int("applied", res.Applied),
		zap.Int("already_applied", res.AlreadyApplied),
		zap.Int("products", len(res.ByProduct)),
	)
	return nil
}
