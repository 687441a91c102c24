package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/admin"
	"musa/api"
	"musa/cart"
	"musa/catalog"
	"musa/gallery"
	"musa/idempotency"
	"musa/inquiries"
	"musa/invoices"
	"musa/livesync"
	"musa/middleware"
	"musa/orders"
	"musa/ratelim"
	"musa/rdx"
	"musa/session"
)

func newRouter(t *testing.T) *httprouter.Router {
	backend := httprouter.New()
	backend.GET("/products", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "products": []map[string]any{{"id": 1, "name": "Cavendish"}}})
	})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	kv := rdx.NewMemory()
	auth := middleware.NewAuthenticator([]byte("test-secret"), time.Hour)
	hub := livesync.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	d := &Deps{
		Auth:        auth,
		Sessions:    &session.Manager{Store: session.NewStore(kv, time.Hour), API: client, Auth: auth, Events: hub},
		Cart:        &cart.Handler{Store: cart.NewStore(kv, time.Hour), API: client, Events: hub},
		Orders:      &orders.Handler{API: client},
		Invoices:    &invoices.Handler{API: client, Drafts: invoices.NewMemoryDrafts(), Signer: invoices.Signer{Key: []byte("k")}},
		Catalog:     &catalog.Handler{API: client},
		Inquiries:   &inquiries.Handler{API: client},
		Admin:       &admin.Handler{API: client},
		Gallery:     &gallery.Handler{API: client, Dir: t.TempDir()},
		Hub:         hub,
		RateLimiter: ratelim.NewRateLimiter(1, 2),
		Idempotency: idempotency.NewMemoryStore(),
	}
	router := httprouter.New()
	RoutesWrapper(router, d)
	return router
}

func do(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newRouter(t), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", rec.Body.String())
}

func TestSessionThenCart(t *testing.T) {
	router := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/cart", "", "").Code)

	rec := do(router, http.MethodPost, "/api/session", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)

	rec = do(router, http.MethodGet, "/api/cart", created.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"item_count":0`)

	// an anonymous session is neither a customer nor an admin
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/orders", created.Token, "").Code)
	rec = do(router, http.MethodGet, "/api/admin/users", created.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin login required")
}

func TestPublicCatalog(t *testing.T) {
	rec := do(newRouter(t), http.MethodGet, "/api/products?search=cav", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cavendish")
}

func TestLoginIsRateLimited(t *testing.T) {
	router := newRouter(t)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/session/login", "", `{}`).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/api/session/login", "", `{}`).Code)
}
