package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/pricebook-backend/internal/pricebooks"
	"github.com/angelmondragon/pricebook-backend/internal/pricing"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	"github.com/angelmondragon/pricebook-backend/pkg/config"
	"github.com/angelmondragon/pricebook-backend/pkg/db"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/migrate"
)

// env holds what every database-backed command needs.
type env struct {
	cfg    *config.Config
	logg   *logger.Logger
	client *db.Client
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pricingctl",
		Short:         "Operate the price book tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInitCmd(), newResolveCmd(), newScopeIDCmd(), newCreateBookCmd())
	return root
}

func newInitCmd() *cobra.Command {
	var runMigrations bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default price book, optionally applying migrations first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				if runMigrations {
					sqlDB, err := e.client.DB().DB()
					if err != nil {
						return fmt.Errorf("extracting sql.DB: %w", err)
					}
					if err := migrate.Run(ctx, sqlDB, migrate.Dialect(e.client.Dialect()), migrate.DefaultDir, "up"); err != nil {
						return err
					}
				}

				created, err := pricebooks.NewRepository(e.client.DB()).EnsureDefault(ctx, e.cfg.Pricing.DefaultBookID, e.cfg.Pricing.DefaultBookName)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"default_price_book_id": e.cfg.Pricing.DefaultBookID,
					"created":               created,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply pending migrations before seeding")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var bookID, productID, qty string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the effective price of a product at a price book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var parsedQty decimal.NullDecimal
			if strings.TrimSpace(qty) != "" {
				value, err := decimal.NewFromString(qty)
				if err != nil {
					return fmt.Errorf("invalid --qty %q: %w", qty, err)
				}
				parsedQty = decimal.NewNullDecimal(value)
			}

			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				engine, _, err := pricing.Build(e.client.DB(), e.cfg.Pricing, nil, e.logg)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(bookID)
				if target == "" {
					target = engine.DefaultBookID()
				}
				resolvedQty := engine.QtyOrDefault(parsedQty)
				value, err := engine.FetchPrice(ctx, productID, target, resolvedQty)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"price_book_id": target,
					"product_id":    productID,
					"qty":           resolvedQty.StringFixed(4),
					"prices":        value,
				})
			})
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "price book id (defaults to the default book)")
	cmd.Flags().StringVar(&productID, "product", "", "product id")
	cmd.Flags().StringVar(&qty, "qty", "", "quantity (defaults to the configured quantity)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newScopeIDCmd() *cobra.Command {
	var websites, groups string
	cmd := &cobra.Command{
		Use:   "scope-id",
		Short: "Print the price book id derived from a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := parseScope(websites, groups)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), scope.Build(s))
			return err
		},
	}
	cmd.Flags().StringVar(&websites, "websites", "", "comma separated website ids")
	cmd.Flags().StringVar(&groups, "customer-groups", "", "comma separated customer group ids")
	return cmd
}

func newCreateBookCmd() *cobra.Command {
	var name, parentID, websites, groups string
	cmd := &cobra.Command{
		Use:   "create-book",
		Short: "Create a price book under a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := parseScope(websites, groups)
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				_, svc, err := pricing.Build(e.client.DB(), e.cfg.Pricing, nil, e.logg)
				if err != nil {
					return err
				}
				if strings.TrimSpace(parentID) == "" {
					parentID = e.cfg.Pricing.DefaultBookID
				}
				book, err := svc.CreatePriceBook(ctx, name, parentID, s)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), book)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "price book name")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent price book id (defaults to the default book)")
	cmd.Flags().StringVar(&websites, "websites", "", "comma separated website ids")
	cmd.Flags().StringVar(&groups, "customer-groups", "", "comma separated customer group ids")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// withEnv loads config, opens the database and closes it once fn returns.
func withEnv(ctx context.Context, fn func(context.Context, *env) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "pricingctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	client, err := db.New(ctx, cfg.DB, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	return fn(ctx, &env{cfg: cfg, logg: logg, client: client})
}

func parseScope(websites, groups string) (scope.Scope, error) {
	w, err := parseIDs("websites", websites)
	if err != nil {
		return scope.Scope{}, err
	}
	g, err := parseIDs("customer-groups", groups)
	if err != nil {
		return scope.Scope{}, err
	}
	return scope.Scope{Websites: w, CustomerGroups: g}, nil
}

func parseIDs(flag, raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s value %q", flag, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
