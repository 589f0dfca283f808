package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricebook-backend/internal/pricebooks"
	"github.com/angelmondragon/pricebook-backend/internal/prices"
	"github.com/angelmondragon/pricebook-backend/pkg/config"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/metrics"
)

// Build wires the repositories, engine and service over one connection.
func Build(conn *gorm.DB, cfg config.PricingConfig, m *metrics.PricingMetrics, logg *logger.Logger) (*Engine, Service, error) {
	if conn == nil {
		return nil, nil, fmt.Errorf("database connection required")
	}

	qty := decimal.Zero
	if raw := strings.TrimSpace(cfg.DefaultQty); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing default qty %q: %w", raw, err)
		}
		if !parsed.IsPositive() {
			return nil, nil, fmt.Errorf("default qty must be positive, got %s", raw)
		}
		qty = parsed
	}

	books := pricebooks.NewRepository(conn)
	priceRepo := prices.NewRepository(conn)

	engine, err := NewEngine(EngineParams{
		Books:         books,
		Prices:        priceRepo,
		DefaultBookID: cfg.DefaultBookID,
		MaxChainDepth: cfg.MaxChainDepth,
		DefaultQty:    qty,
		Metrics:       m,
		Logger:        logg,
	})
	if err != nil {
		return nil, nil, err
	}

	svc, err := NewService(books, priceRepo, engine, m, logg)
	if err != nil {
		return nil, nil, err
	}
	return engine, svc, nil
}
