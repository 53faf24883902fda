package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/auth"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
	"github.com/sushantdkl/SneakHead-sub001/internal/storage/postgres"
)

const seedConcurrency = 8

type seedProduct struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      *bool           `json:"is_active"`
	ImageURL      string          `json:"image_url"`
}

func (p seedProduct) toProduct() (product.Product, error) {
	if p.ID == "" || p.Name == "" {
		return product.Product{}, errors.New("id and name are required")
	}
	if p.Price.IsNegative() || p.StockQuantity < 0 {
		return product.Product{}, errors.Errorf("product %s: price and stock must not be negative", p.ID)
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return product.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      active,
		ImageURL:      p.ImageURL,
	}, nil
}

type productUpserter interface {
	Upsert(ctx context.Context, p product.Product) error
}

func seedCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "upsert catalog products and an API key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "products-file", Value: "db/seed/products.json", Usage: "products JSON, optionally gzip (.gz)"},
			&cli.StringFlag{Name: "api-key", EnvVars: []string{"SHOP_SEED_API_KEY"}, Usage: "raw API key to register"},
			&cli.StringFlag{Name: "api-key-pepper", EnvVars: []string{"SHOP_API_KEY_PEPPER"}, Usage: "HMAC pepper"},
			&cli.StringFlag{Name: "user-id", Value: "admin", Usage: "user bound to the API key"},
			&cli.StringFlag{Name: "role", Value: string(auth.RoleAdmin), Usage: "customer or admin"},
		},
		Action: func(c *cli.Context) error {
			products, err := readProducts(c.String("products-file"))
			if err != nil {
				return err
			}
			pool, err := connect(c, lg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := seedProducts(c.Context, lg, postgres.NewProductRepository(pool), products); err != nil {
				return errors.Wrap(err, "seed products")
			}
			key := c.String("api-key")
			if key == "" {
				lg.Info("No API key given, skipping")
				return nil
			}
			info, err := apiKeyInfo(key, c.String("api-key-pepper"), c.String("user-id"), c.String("role"))
			if err != nil {
				return err
			}
			if err := postgres.NewAPIKeyRepository(pool).Upsert(c.Context, info); err != nil {
				return errors.Wrap(err, "seed api key")
			}
			lg.Info("Upserted API key", zap.String("user_id", info.UserID), zap.String("role", string(info.Role)))
			return nil
		},
	}
}

// readProducts loads a JSON array of products; .gz files are decompressed.
func readProducts(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeProducts(r)
}

func decodeProducts(r io.Reader) ([]product.Product, error) {
	var raw []seedProduct
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	out := make([]product.Product, len(raw))
	for i, p := range raw {
		var err error
		if out[i], err = p.toProduct(); err != nil {
			return nil, errors.Wrapf(err, "product #%d", i)
		}
	}
	return out, nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo productUpserter, products []product.Product) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, p := range products {
		g.Go(func() error {
			return repo.Upsert(ctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	lg.Info("Upserted products", zap.Int("count", len(products)))
	return nil
}

func apiKeyInfo(key, pepper, userID, role string) (auth.APIKeyInfo, error) {
	if pepper == "" {
		return auth.APIKeyInfo{}, errors.New("api key pepper is required to store an API key")
	}
	r := auth.Role(role)
	if r != auth.RoleAdmin && r != auth.RoleCustomer {
		return auth.APIKeyInfo{}, errors.Errorf("unknown role %q", role)
	}
	if userID == "" {
		return auth.APIKeyInfo{}, errors.New("user id is required")
	}
	return auth.APIKeyInfo{
		KeyHash: auth.HashAPIKey([]byte(pepper), key),
		Name:    "seeded " + string(r) + " key",
		UserID:  userID,
		Role:    r,
	}, nil
}
