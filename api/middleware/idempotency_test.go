package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

const assignPath = "/api/v1/price-books/w%5B1%5D:cg%5B2%5D/prices"

func keyedRequest(method, url, key, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"assign batch", http.MethodPut, "/api/v1/price-books/w[1]:cg[2]/prices", defaultIdempotencyTTL, true},
		{"unassign batch", http.MethodPost, "/api/v1/price-books/retail/prices/unassign", defaultIdempotencyTTL, true},
		{"create book", http.MethodPost, "/api/v1/price-books", structuralIdempotencyTTL, true},
		{"delete book", http.MethodDelete, "/api/v1/price-books/retail", structuralIdempotencyTTL, true},
		{"search is a read", http.MethodPost, "/api/v1/price-books/search", 0, false},
		{"get prices is a read", http.MethodGet, "/api/v1/price-books/retail/prices", 0, false},
		{"empty path", http.MethodPut, "", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(store, nil)(handler)

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		mw.ServeHTTP(resp, keyedRequest(http.MethodPut, assignPath, "", `{"items":[]}`))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run for every unkeyed request, ran %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("unkeyed requests must not be stored")
	}
}

func TestIdempotencyMiddlewareNilStore(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(nil, nil)(handler)

	for i := 0; i < 2; i++ {
		mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/price-books", "k1", `{}`))
	}
	if calls != 2 {
		t.Fatalf("expected passthrough without a store, ran %d", calls)
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`{"data":{"status":"partial_success"}}`))
	})
	mw := Idempotency(store, nil)(handler)

	body := `{"items":[{"product_id":"sku-1"}]}`
	first := httptest.NewRecorder()
	mw.ServeHTTP(first, keyedRequest(http.MethodPut, assignPath, "abc", body))
	if first.Code != http.StatusMultiStatus {
		t.Fatalf("expected first response 207 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	mw.ServeHTTP(replay, keyedRequest(http.MethodPut, assignPath, "abc", body))
	if replay.Code != http.StatusMultiStatus {
		t.Fatalf("expected replay status 207 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"status":"partial_success"}}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	key := store.IdempotencyKey(http.MethodPut+"|"+"/api/v1/price-books/w[1]:cg[2]/prices", "abc")
	if store.ttls[key] != defaultIdempotencyTTL {
		t.Fatalf("expected batch ttl for %s, got %v", key, store.ttls[key])
	}
}

func TestIdempotencyMiddlewareScopesKeyByPath(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(store, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodDelete, "/api/v1/price-books/a", "same", ""))
	mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodDelete, "/api/v1/price-books/b", "same", ""))
	if calls != 2 {
		t.Fatalf("same key on different paths must not replay, ran %d", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mw := Idempotency(store, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/price-books", "retry", `{}`))
	mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/price-books", "retry", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry after server error, ran %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("server errors must not be stored")
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(store, nil)(handler)

	mw.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/price-books/retail/prices/unassign", "xyz", `{"product_ids":["a"]}`))

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/price-books/retail/prices/unassign", "xyz", `{"product_ids":["b"]}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
