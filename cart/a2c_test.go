package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/api"
	"musa/globals"
	"musa/models"
)

type events struct {
	mu      sync.Mutex
	actions []string
}

func (e *events) Publish(_ context.Context, _, action string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions = append(e.actions, action)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fakeBackend struct {
	mu        sync.Mutex
	orders    []models.OrderRequest
	failOrder bool
	// onOrder runs while the backend is handling POST /orders.
	onOrder func()
}

func (b *fakeBackend) server(t *testing.T) *httptest.Server {
	router := httprouter.New()
	router.GET("/products/:id", func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "404" {
			writeJSON(w, 404, map[string]any{"success": false, "message": "Product not found"})
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "product": map[string]any{
			"id": 1, "name": "Cavendish", "image_urls": []string{"/img/cav.jpg"},
		}})
	})
	router.GET("/prices/:id", func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "2" {
			writeJSON(w, 200, map[string]any{"success": true, "prices": []any{}})
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "prices": []map[string]any{
			{"product_id": 1, "price": 20, "date": "2026-09-01"},
			{"product_id": 1, "price": 25.5, "date": "2026-10-01"},
		}})
	})
	router.POST("/orders", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req models.OrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if b.onOrder != nil {
			b.onOrder()
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failOrder {
			writeJSON(w, 500, map[string]any{"success": false, "message": "Database error"})
			return
		}
		b.orders = append(b.orders, req)
		writeJSON(w, 201, map[string]any{"success": true, "order_id": 77})
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, b *fakeBackend) (*Handler, *events) {
	srv := b.server(t)
	client, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	s, _ := newStore()
	ev := &events{}
	return &Handler{
		Store:  s,
		API:    client,
		Events: ev,
		Now:    func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) },
	}, ev
}

func call(h httprouter.Handle, sess models.Session, method, target, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), globals.SessionKey, sess))
	rec := httptest.NewRecorder()
	h(rec, req, ps)
	return rec
}

type cartBody struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Cart    Summary `json:"cart"`
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var b cartBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

var shopper = models.Session{ID: "s1", Token: "user-tok", User: &models.User{ID: 1}, Approved: true}

func TestAddToCartUsesCurrentPrice(t *testing.T) {
	h, ev := newHandler(t, &fakeBackend{})

	rec := call(AddToCart(h), shopper, http.MethodPost, "/api/cart/items", `{"product_id":1,"quantity":2}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := parse(t, rec)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, "Cavendish", body.Cart.Lines[0].ProductName)
	assert.Equal(t, "/img/cav.jpg", body.Cart.Lines[0].ImageURL)
	assert.Equal(t, "51.00", body.Cart.TotalDisplay)
	assert.Equal(t, []string{EventUpdated}, ev.actions)
}

func TestAddToCartWithoutPrice(t *testing.T) {
	h, _ := newHandler(t, &fakeBackend{})
	rec := call(AddToCart(h), shopper, http.MethodPost, "/api/cart/items", `{"product_id":2}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, _ := newHandler(t, &fakeBackend{})
	rec := call(AddToCart(h), shopper, http.MethodPost, "/api/cart/items", `{"product_id":404}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product not found")
}

func TestUpdateCartItem(t *testing.T) {
	h, _ := newHandler(t, &fakeBackend{})
	call(AddToCart(h), shopper, http.MethodPost, "/", `{"product_id":1}`, nil)
	ps := httprouter.Params{{Key: "id", Value: "1"}}

	rec := call(UpdateCartItem(h), shopper, http.MethodPut, "/", `{"quantity":4}`, ps)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, parse(t, rec).Cart.ItemCount)

	rec = call(UpdateCartItem(h), shopper, http.MethodPut, "/", `{}`, ps)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(UpdateCartItem(h), shopper, http.MethodPut, "/", `{"quantity":0}`, ps)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, parse(t, rec).Cart.Lines)
}

func TestPlaceOrderClearsCart(t *testing.T) {
	b := &fakeBackend{}
	h, _ := newHandler(t, b)
	call(AddToCart(h), shopper, http.MethodPost, "/", `{"product_id":1,"quantity":3}`, nil)

	rec := call(PlaceOrder(h), shopper, http.MethodPost, "/api/cart/checkout", `{}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, b.orders, 1)
	assert.Equal(t, "2026-10-16", b.orders[0].DeliveryDate)
	assert.Equal(t, []models.OrderLine{{ProductID: 1, Quantity: 3}}, b.orders[0].Products)

	lines, err := h.Store.Lines(context.Background(), shopper.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPlaceOrderKeepsLinesAddedDuringCheckout(t *testing.T) {
	b := &fakeBackend{}
	h, _ := newHandler(t, b)
	call(AddToCart(h), shopper, http.MethodPost, "/", `{"product_id":1,"quantity":2}`, nil)

	// another tab adds a product and bumps an ordered one mid-checkout
	b.onOrder = func() {
		ctx := context.Background()
		_, err := h.Store.Add(ctx, shopper.ID, models.CartLine{ProductID: 9, ProductName: "Red Banana", Quantity: 1})
		require.NoError(t, err)
		_, err = h.Store.Increment(ctx, shopper.ID, 1)
		require.NoError(t, err)
	}

	rec := call(PlaceOrder(h), shopper, http.MethodPost, "/", `{}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []models.OrderLine{{ProductID: 1, Quantity: 2}}, b.orders[0].Products)

	lines, err := h.Store.Lines(context.Background(), shopper.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, 9, lines[1].ProductID)
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	h, _ := newHandler(t, &fakeBackend{failOrder: true})
	call(AddToCart(h), shopper, http.MethodPost, "/", `{"product_id":1}`, nil)

	rec := call(PlaceOrder(h), shopper, http.MethodPost, "/", `{"delivery_date":"2026-10-20"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	lines, _ := h.Store.Lines(context.Background(), shopper.ID)
	assert.Len(t, lines, 1)
}

func TestPlaceOrderRules(t *testing.T) {
	h, _ := newHandler(t, &fakeBackend{})

	rec := call(PlaceOrder(h), shopper, http.MethodPost, "/", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")

	call(AddToCart(h), shopper, http.MethodPost, "/", `{"product_id":1}`, nil)
	rec = call(PlaceOrder(h), shopper, http.MethodPost, "/", `{"delivery_date":"2026-10-14"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "past date")

	rec = call(PlaceOrder(h), shopper, http.MethodPost, "/", `{"delivery_date":"15/10/2026"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad format")

	pending := shopper
	pending.Approved = false
	rec = call(PlaceOrder(h), pending, http.MethodPost, "/", `{}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeliveryDate(t *testing.T) {
	now := time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC)
	d, err := deliveryDate("", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", d)

	d, err = deliveryDate("2026-10-15", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", d)

	_, err = deliveryDate("2026-10-14", now)
	assert.ErrorIs(t, err, errDatePast)
}
