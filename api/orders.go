package api

import (
	"context"
	"fmt"
	"net/http"

	"musa/models"
)

type orderList struct {
	Envelope
	Orders []models.Order `json:"orders"`
}

type orderOne struct {
	Envelope
	Order models.Order `json:"order"`
}

// CreateOrder places an order for the caller. The backend may answer with
// the full order, only its id, or neither.
func (c *Client) CreateOrder(ctx context.Context, caller Caller, req models.OrderRequest) (models.Order, error) {
	var resp struct {
		Envelope
		Order   *models.Order `json:"order"`
		OrderID int           `json:"order_id"`
	}
	if err := c.sendJSON(ctx, caller, User, http.MethodPost, "/orders", req, &resp); err != nil {
		return models.Order{}, err
	}
	if resp.Order != nil {
		return *resp.Order, nil
	}
	return models.Order{ID: resp.OrderID, Status: models.OrderPending, DeliveryDate: req.DeliveryDate}, nil
}

func (c *Client) FetchUserOrders(ctx context.Context, caller Caller) ([]models.Order, error) {
	var resp orderList
	err := c.getJSON(ctx, caller, User, "/orders", &resp)
	return resp.Orders, err
}

func (c *Client) FetchOrder(ctx context.Context, caller Caller, id int) (models.Order, error) {
	var resp orderOne
	err := c.getJSON(ctx, caller, User, fmt.Sprintf("/orders/%d", id), &resp)
	return resp.Order, err
}

func (c *Client) FetchAllOrders(ctx context.Context, caller Caller) ([]models.Order, error) {
	var resp orderList
	err := c.getJSON(ctx, caller, Admin, "/admin/orders", &resp)
	return resp.Orders, err
}

func (c *Client) FetchAdminOrder(ctx context.Context, caller Caller, id int) (models.Order, error) {
	var resp orderOne
	err := c.getJSON(ctx, caller, Admin, fmt.Sprintf("/admin/orders/%d", id), &resp)
	return resp.Order, err
}

// FetchOrdersByUser lists another user's orders for the back-office.
func (c *Client) FetchOrdersByUser(ctx context.Context, caller Caller, userID int) ([]models.Order, error) {
	var resp orderList
	err := c.getJSON(ctx, caller, Admin, fmt.Sprintf("/orders/user/%d", userID), &resp)
	return resp.Orders, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, caller Caller, id int, upd models.StatusUpdate) error {
	return c.sendJSON(ctx, caller, Admin, http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", id), upd, nil)
}

func (c *Client) CreateOrderInvoice(ctx context.Context, caller Caller, id int, inv models.Invoice) error {
	return c.sendJSON(ctx, caller, Admin, http.MethodPost, fmt.Sprintf("/admin/orders/%d/invoice", id), inv, nil)
}
