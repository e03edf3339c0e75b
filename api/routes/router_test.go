package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/nexusshop-storefront/internal/auth"
	"github.com/angelmondragon/nexusshop-storefront/internal/cart"
	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/angelmondragon/nexusshop-storefront/internal/search"
	"github.com/angelmondragon/nexusshop-storefront/internal/shipping"
	"github.com/angelmondragon/nexusshop-storefront/pkg/auth/session"
	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/metrics"
	"github.com/angelmondragon/nexusshop-storefront/pkg/mocknet"
	"github.com/angelmondragon/nexusshop-storefront/pkg/security"
	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		HTTP: config.HTTPConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "nexusshop",
			ExpirationMinutes:      30,
			RefreshTokenTTLMinutes: 120,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		},
	}
}

type testServer struct {
	handler http.Handler
	catalog *catalog.Catalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	logg := logger.Nop()
	reg := prometheus.NewRegistry()
	storefrontMetrics := metrics.NewStorefrontMetrics(reg)

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store := storage.NewMemoryStore()
	cartEngine, err := cart.NewPersistentEngine(cart.NewEngine(cart.DefaultRules(), storefrontMetrics), store, "nexusshop-cart", logg)
	if err != nil {
		t.Fatalf("cart engine: %v", err)
	}
	sessions, err := session.NewMemoryManager(cfg.JWT)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	sim := mocknet.Instant()
	authService, err := auth.NewService(auth.ServiceParams{
		Store:      store,
		StorageKey: "nexusshop-auth",
		Sessions:   sessions,
		Hasher:     security.NewHasher(cfg.Password),
		JWTConfig:  cfg.JWT,
		Simulator:  sim,
		Logger:     logg,
		OnLogout:   func(ctx context.Context) { cartEngine.Forget(ctx) },
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	estimator, err := shipping.NewEstimator(sim, func() float64 { return 0 })
	if err != nil {
		t.Fatalf("shipping estimator: %v", err)
	}

	handler := NewRouter(Dependencies{
		Config:      cfg,
		Logger:      logg,
		Catalog:     cat,
		Filters:     search.NewEngine(cat, storefrontMetrics),
		Cart:        cartEngine,
		Shipping:    estimator,
		Auth:        authService,
		Sessions:    sessions,
		Checks:      map[string]storage.Pinger{"storage": stubPinger{}},
		Metrics:     storefrontMetrics,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	})
	return &testServer{handler: handler, catalog: cat}
}

func (s *testServer) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func stockedProduct(t *testing.T, cat *catalog.Catalog) catalog.Product {
	t.Helper()
	for _, p := range cat.Products() {
		if p.InStock && p.StockCount > 1 && len(p.Variants) == 0 {
			return p
		}
	}
	t.Fatal("catalog has no stocked product without variants")
	return catalog.Product{}
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.do(t, http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"NOT_FOUND"`) {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health/live", "", map[string]string{"X-Request-Id": "req-42"})
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/catalog/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("products: expected 200, got %d", rec.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != len(srv.catalog.Products()) {
		t.Fatalf("expected %d products, got %d", len(srv.catalog.Products()), list.Count)
	}

	product := srv.catalog.Products()[0]
	rec = srv.do(t, http.MethodGet, "/api/v1/catalog/products/"+product.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("product: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/api/v1/catalog/products/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing product: expected 404, got %d", rec.Code)
	}
}

func TestFilterRoutesShareState(t *testing.T) {
	srv := newTestServer(t)
	category := srv.catalog.Products()[0].Category

	rec := srv.do(t, http.MethodPost, "/api/v1/filters/categories/"+category+"/toggle", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var results search.Results
	decodeData(t, srv.do(t, http.MethodGet, "/api/v1/filters", "", nil), &results)
	if results.ActiveFilters != 1 {
		t.Fatalf("expected one active filter, got %d", results.ActiveFilters)
	}
	for _, p := range results.Products {
		if p.Category != category {
			t.Fatalf("unexpected category %q in filtered results", p.Category)
		}
	}

	decodeData(t, srv.do(t, http.MethodPost, "/api/v1/filters/reset", "", nil), &results)
	if results.ActiveFilters != 0 || results.Count != len(srv.catalog.Products()) {
		t.Fatalf("reset should restore the full catalog, got %+v", results.ActiveFilters)
	}
}

func TestCartFlow(t *testing.T) {
	srv := newTestServer(t)
	product := stockedProduct(t, srv.catalog)

	body := `{"productId":"` + product.ID + `","quantity":2}`
	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", body, map[string]string{"Idempotency-Key": "add-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("idempotency replay requires redis")
	}

	var snapshot struct {
		Items []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		ItemCount int `json:"itemCount"`
	}
	decodeData(t, srv.do(t, http.MethodGet, "/api/v1/cart", "", nil), &snapshot)
	if len(snapshot.Items) != 1 || snapshot.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", snapshot)
	}

	itemID := snapshot.Items[0].ID
	rec = srv.do(t, http.MethodPatch, "/api/v1/cart/items/"+itemID, `{"quantity":0}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &snapshot)
	if len(snapshot.Items) != 0 {
		t.Fatalf("quantity zero should remove the row, got %+v", snapshot.Items)
	}
}

func TestCartCouponRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/coupon", `{"code":"nope"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("coupon: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Applied bool `json:"applied"`
	}
	decodeData(t, rec, &resp)
	if resp.Applied {
		t.Fatal("unknown coupon should not apply")
	}
}

func TestAuthRoutesGuardProfile(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.do(t, http.MethodGet, "/api/v1/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	body := `{"email":"` + auth.DemoEmail + `","password":"` + auth.DemoPassword + `"}`
	rec := srv.do(t, http.MethodPost, "/api/v1/auth/login", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var state auth.State
	decodeData(t, rec, &state)
	if state.Token == "" {
		t.Fatal("expected access token")
	}

	bearer := map[string]string{"Authorization": "Bearer " + state.Token}
	rec = srv.do(t, http.MethodGet, "/api/v1/auth/me", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	if rec := srv.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/api/v1/auth/me", "", bearer); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session should be rejected, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/api/v1/catalog/categories", "", nil)

	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nexusshop_http_requests_total") {
		t.Fatalf("expected http metrics exported")
	}
}
