// Command shopctl runs operational tasks against the shop database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sushantdkl/SneakHead-sub001/internal/storage/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if err := newApp(lg).RunContext(ctx, os.Args); err != nil {
		lg.Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newApp(lg *zap.Logger) *cli.App {
	return &cli.App{
		Name:  "shopctl",
		Usage: "shop database operations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL",
				EnvVars: []string{"SHOP_DATABASE_URL", "DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(lg),
			seedCommand(lg),
			restockCommand(lg),
		},
	}
}

func databaseURL(c *cli.Context) (string, error) {
	u := c.String("database-url")
	if u == "" {
		return "", errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	return u, nil
}

// connect opens a pool after bringing the schema up to date.
func connect(c *cli.Context, lg *zap.Logger) (*pgxpool.Pool, error) {
	u, err := databaseURL(c)
	if err != nil {
		return nil, err
	}
	version, err := postgres.RunMigrations(u)
	if err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Schema ready", zap.Uint("version", version))

	pool, err := postgres.NewPool(c.Context, u)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return pool, nil
}

func migrateCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply embedded schema migrations",
		Action: func(c *cli.Context) error {
			u, err := databaseURL(c)
			if err != nil {
				return err
			}
			version, err := postgres.RunMigrations(u)
			if err != nil {
				return errors.Wrap(err, "run migrations")
			}
			lg.Info("Migrations applied", zap.Uint("version", version))
			return nil
		},
	}
}
