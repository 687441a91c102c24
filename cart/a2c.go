package cart

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"musa/api"
	"musa/filter"
	"musa/models"
	"musa/session"
	"musa/utils"
)

type Handler struct {
	Store  *Store
	API    *api.Client
	Events session.Publisher
	// Now is overridable in tests.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, sessionID string, lines []models.CartLine) {
	sum := Summarize(lines)
	if h.Events != nil {
		h.Events.Publish(r.Context(), sessionID, EventUpdated, sum)
	}
	utils.RespondWithJSON(w, status, utils.M{"success": true, "cart": sum})
}

func storeFailed(w http.ResponseWriter, op string, err error) {
	log.Printf("cart %s: %v", op, err)
	utils.RespondWithError(w, http.StatusServiceUnavailable, "Cart is unavailable, please try again")
}

// GetCart returns the session's cart with its total.
func GetCart(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		sum, err := h.Store.Summary(ctx, session.FromContext(ctx).ID)
		if err != nil {
			storeFailed(w, "get", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "cart": sum})
	}
}

// AddToCart adds a product at its current price. Adding a product already
// in the cart increases its quantity.
func AddToCart(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ProductID int `json:"product_id"`
			Quantity  int `json:"quantity"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}
		if body.ProductID <= 0 || body.Quantity < 1 {
			utils.RespondWithError(w, http.StatusBadRequest, "Missing or invalid fields")
			return
		}

		ctx := r.Context()
		sess := session.FromContext(ctx)
		caller := session.Caller(sess)

		product, err := h.API.FetchProduct(ctx, caller, body.ProductID)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load product")
			return
		}
		prices, err := h.API.FetchPrices(ctx, caller, body.ProductID)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load product prices")
			return
		}
		current, ok := filter.CurrentPrice(prices)
		if !ok || !current.Price.IsPositive() {
			utils.RespondWithError(w, http.StatusConflict, "This product has no price yet")
			return
		}

		line := models.CartLine{
			ProductID:   body.ProductID,
			ProductName: product.Name,
			Quantity:    body.Quantity,
			Price:       current.Price,
		}
		if len(product.ImageURLs) > 0 {
			line.ImageURL = product.ImageURLs[0]
		}

		lines, err := h.Store.Add(ctx, sess.ID, line)
		if err != nil {
			storeFailed(w, "add", err)
			return
		}
		h.respond(w, r, http.StatusCreated, sess.ID, lines)
	}
}

// UpdateCartItem sets the quantity of one line; zero or less removes it.
func UpdateCartItem(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		productID, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		var body struct {
			Quantity *int `json:"quantity"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Quantity == nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Quantity is required")
			return
		}
		sid := session.FromContext(r.Context()).ID
		lines, err := h.Store.SetQuantity(r.Context(), sid, productID, *body.Quantity)
		if err != nil {
			storeFailed(w, "update", err)
			return
		}
		h.respond(w, r, http.StatusOK, sid, lines)
	}
}

func lineOp(h *Handler, op string, fn func(ctx context.Context, sid string, productID int) ([]models.CartLine, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		productID, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sid := session.FromContext(r.Context()).ID
		lines, err := fn(r.Context(), sid, productID)
		if err != nil {
			storeFailed(w, op, err)
			return
		}
		h.respond(w, r, http.StatusOK, sid, lines)
	}
}

func IncrementItem(h *Handler) httprouter.Handle { return lineOp(h, "increment", h.Store.Increment) }

// DecrementItem removes the line when its quantity would drop below 1.
func DecrementItem(h *Handler) httprouter.Handle { return lineOp(h, "decrement", h.Store.Decrement) }

// RemoveItem is a no-op for products not in the cart.
func RemoveItem(h *Handler) httprouter.Handle { return lineOp(h, "remove", h.Store.Remove) }

func ClearCart(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sid := session.FromContext(r.Context()).ID
		if err := h.Store.Clear(r.Context(), sid); err != nil {
			storeFailed(w, "clear", err)
			return
		}
		h.respond(w, r, http.StatusOK, sid, nil)
	}
}

var (
	errDateFormat = errors.New("delivery date must be YYYY-MM-DD")
	errDatePast   = errors.New("delivery date cannot be in the past")
)

// deliveryDate defaults to tomorrow and refuses dates before today.
func deliveryDate(raw string, now time.Time) (string, error) {
	if raw == "" {
		return now.AddDate(0, 0, 1).Format(time.DateOnly), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return "", errDateFormat
	}
	day := d.Format(time.DateOnly)
	if day < now.Format(time.DateOnly) {
		return "", errDatePast
	}
	return day, nil
}

// PlaceOrder turns the cart into an order on the backend. Ordered
// quantities leave the cart only once the backend has accepted the order.
func PlaceOrder(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		sess := session.FromContext(ctx)
		if !sess.Approved {
			utils.RespondWithError(w, http.StatusForbidden, "Your account is awaiting approval")
			return
		}

		var body struct {
			DeliveryDate string `json:"delivery_date"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		date, err := deliveryDate(body.DeliveryDate, h.now())
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		lines, err := h.Store.Lines(ctx, sess.ID)
		if err != nil {
			storeFailed(w, "checkout", err)
			return
		}
		if len(lines) == 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Your cart is empty")
			return
		}

		req := models.OrderRequest{DeliveryDate: date, Products: make([]models.OrderLine, 0, len(lines))}
		for _, l := range lines {
			req.Products = append(req.Products, models.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
		}

		order, err := h.API.CreateOrder(ctx, session.Caller(sess), req)
		if err != nil {
			log.Printf("place order for session %s: %v", sess.ID, err)
			utils.RespondWithAPIError(w, err, "Error placing order. Please try again.")
			return
		}

		left, err := h.Store.Settle(ctx, sess.ID, req.Products)
		if err != nil {
			log.Printf("cart cleanup after order %d: %v", order.ID, err)
		} else if h.Events != nil {
			h.Events.Publish(ctx, sess.ID, EventUpdated, Summarize(left))
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{
			"success": true,
			"message": "Order placed successfully!",
			"order":   order,
		})
	}
}
