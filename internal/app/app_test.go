package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string][]domain.Product{
		"1": {
			{ID: 1, Title: "Fjallraven Backpack", Price: 109.95, Category: "men's clothing", Image: "https://fakestoreapi.com/img/1.jpg"},
			{ID: 2, Title: "Slim Fit T-Shirt", Price: 22.3, Category: "men's clothing", Image: "https://fakestoreapi.com/img/2.jpg"},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		products, ok := pages[r.URL.Query().Get("_page")]
		if !ok {
			products = []domain.Product{}
		}
		json.NewEncoder(w).Encode(products)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, catalogURL, dbPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.SQLitePath = dbPath
	cfg.Catalog.BaseURL = catalogURL
	cfg.Catalog.PageSize = 2
	cfg.HTTP.ShutdownTimeout = 2 * time.Second
	require.NoError(t, cfg.Validate())
	return cfg
}

type running struct {
	app      *App
	httpURL  string
	grpcAddr string
	stop     func()
}

func start(t *testing.T, cfg *config.Config) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, httpLis, grpcLis) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("app did not shut down")
		}
		assert.NoError(t, a.Close())
	}
	t.Cleanup(stop)

	return &running{
		app:      a,
		httpURL:  "http://" + httpLis.Addr().String(),
		grpcAddr: grpcLis.Addr().String(),
		stop:     stop,
	}
}

func post(t *testing.T, url, session string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	req.Header.Set(handler.SessionHeader, session)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApp_BrowseConfirmAndRestart(t *testing.T) {
	catalogSrv := newCatalogServer(t)
	cfg := testConfig(t, catalogSrv.URL, filepath.Join(t.TempDir(), "cart.db"))

	r := start(t, cfg)

	resp, err := http.Get(r.httpURL + "/api/v1/products?q=backpack")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := resp.Header.Get(handler.SessionHeader)
	require.NotEmpty(t, session)

	var products handler.ProductsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products.Products, 1)

	resp = post(t, r.httpURL+"/api/v1/products/1/select", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, r.httpURL+"/api/v1/selection/confirm", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msg handler.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "Fjallraven Backpack added to cart", msg.Message)

	conn, err := grpc.NewClient(r.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	reply, err := handler.NewCartServiceClient(conn).ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, reply.Entries, 1)
	assert.Equal(t, int64(1), reply.Entries[0].ID)

	conn.Close()
	r.stop()

	// a fresh process sees the same cart
	again := start(t, cfg)
	entries := again.app.Cart.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Fjallraven Backpack", entries[0].Title)
}

func TestApp_Health(t *testing.T) {
	catalogSrv := newCatalogServer(t)
	r := start(t, testConfig(t, catalogSrv.URL, filepath.Join(t.TempDir(), "cart.db")))

	resp, err := http.Get(r.httpURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenSlot_UnknownBackend(t *testing.T) {
	_, _, err := OpenSlot(context.Background(), config.StorageConfig{Backend: "etcd"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenSlot_Memory(t *testing.T) {
	slot, closeSlot, err := OpenSlot(context.Background(), config.StorageConfig{Backend: config.BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	defer closeSlot()
	assert.NoError(t, slot.Ping(context.Background()))
}

// Real backends, skipped unless reachable.

func TestOpenSlot_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	testBackendRoundTrip(t, config.StorageConfig{Backend: config.BackendRedis, RedisAddr: addr})
}

func TestOpenSlot_MySQL(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	}
	testBackendRoundTrip(t, config.StorageConfig{Backend: config.BackendMySQL, MySQLDSN: dsn})
}

func testBackendRoundTrip(t *testing.T, cfg config.StorageConfig) {
	t.Helper()
	ctx := context.Background()

	slot, closeSlot, err := OpenSlot(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Skipf("%s not available: %v", cfg.Backend, err)
	}
	defer closeSlot()

	key := "test-" + uuid.NewString()
	defer slot.Delete(ctx, key)

	entry := domain.CartEntry{ID: 7, Title: "Gold Ring", Price: 168, Image: "https://fakestoreapi.com/img/7.jpg"}

	first := service.NewCartStore(slot, key, nil)
	require.NoError(t, first.AddEntry(ctx, entry))
	require.NoError(t, first.AddEntry(ctx, entry))

	second := service.NewCartStore(slot, key, nil)
	second.Initialize(ctx)
	assert.Equal(t, first.Entries(), second.Entries())
}
