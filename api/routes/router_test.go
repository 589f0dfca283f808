package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricebook-backend/internal/pricing"
	"github.com/angelmondragon/pricebook-backend/internal/scope"
	"github.com/angelmondragon/pricebook-backend/pkg/config"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPricingService struct {
	lastBookID string
}

func (s *stubPricingService) FindPriceBook(_ context.Context, sc scope.Scope) (*pricing.PriceBookDTO, error) {
	return &pricing.PriceBookDTO{ID: scope.Build(sc), Scope: sc}, nil
}

func (s *stubPricingService) GetPriceBook(_ context.Context, id string) (*pricing.PriceBookDTO, error) {
	s.lastBookID = id
	return &pricing.PriceBookDTO{ID: id}, nil
}

func (s *stubPricingService) CreatePriceBook(_ context.Context, name, parentID string, sc scope.Scope) (*pricing.PriceBookDTO, error) {
	return &pricing.PriceBookDTO{ID: scope.Build(sc), Name: name, ParentID: &parentID, Scope: sc}, nil
}

func (s *stubPricingService) DeletePriceBook(_ context.Context, id string) error {
	s.lastBookID = id
	return nil
}

func (s *stubPricingService) AssignPrices(_ context.Context, bookID string, _ []pricing.PriceInput) (*pricing.AssignResult, error) {
	s.lastBookID = bookID
	return &pricing.AssignResult{Status: pricing.StatusSuccess}, nil
}

func (s *stubPricingService) UnassignPrices(_ context.Context, bookID string, ids []string) (int64, error) {
	s.lastBookID = bookID
	return int64(len(ids)), nil
}

func (s *stubPricingService) GetPrices(_ context.Context, bookID string, ids []string, _ decimal.NullDecimal) ([]pricing.ProductPrice, error) {
	s.lastBookID = bookID
	out := make([]pricing.ProductPrice, 0, len(ids))
	for _, id := range ids {
		out = append(out, pricing.ProductPrice{ProductID: id})
	}
	return out, nil
}

func newTestRouter(svc pricing.Service) (http.Handler, *prometheus.Registry) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logg, stubPinger{}, nil, svc, reg), reg
}

func TestRouterServesRoutes(t *testing.T) {
	svc := &stubPricingService{}
	router, _ := newTestRouter(svc)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"live", http.MethodGet, "/health/live", "", http.StatusOK},
		{"ready", http.MethodGet, "/health/ready", "", http.StatusOK},
		{"create", http.MethodPost, "/api/v1/price-books", `{"name":"Retail","parent_id":"default","scope":{"websites":[1],"customer_groups":[2]}}`, http.StatusCreated},
		{"search", http.MethodPost, "/api/v1/price-books/search", `{"scope":{"websites":[1],"customer_groups":[2]}}`, http.StatusOK},
		{"get", http.MethodGet, "/api/v1/price-books/retail", "", http.StatusOK},
		{"delete", http.MethodDelete, "/api/v1/price-books/retail", "", http.StatusOK},
		{"assign", http.MethodPut, "/api/v1/price-books/retail/prices", `{"items":[{"product_id":"sku-1"}]}`, http.StatusOK},
		{"unassign", http.MethodPost, "/api/v1/price-books/retail/prices/unassign", `{"product_ids":["sku-1"]}`, http.StatusOK},
		{"lookup", http.MethodGet, "/api/v1/price-books/retail/prices?ids=sku-1", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, body))
			if rec.Code != tt.want {
				t.Fatalf("%s %s: expected %d got %d (%s)", tt.method, tt.path, tt.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-Id") == "" {
				t.Fatalf("expected request id header on %s", tt.path)
			}
		})
	}
}

func TestRouterPassesScopeIDFromPath(t *testing.T) {
	svc := &stubPricingService{}
	router, _ := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/price-books/w%5B1%5D:cg%5B2%5D", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastBookID != "w[1]:cg[2]" {
		t.Fatalf("expected decoded scope id, got %q", svc.lastBookID)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router, _ := newTestRouter(&stubPricingService{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", rec.Body.String())
	}
}
