// Package admin holds the back-office user management and dashboard
// endpoints.
package admin

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"musa/api"
	"musa/filter"
	"musa/models"
	"musa/session"
	"musa/utils"
)

type Handler struct {
	API *api.Client
}

// Stats is the dashboard summary.
type Stats struct {
	TotalUsers     int `json:"totalUsers"`
	TotalProducts  int `json:"totalProducts"`
	TotalOrders    int `json:"totalOrders"`
	TotalInquiries int `json:"totalInquiries"`
	PendingUsers   int `json:"pendingUsers"`
	PendingOrders  int `json:"pendingOrders"`
}

func count[T any](items []T, keep func(T) bool) int {
	n := 0
	for _, it := range items {
		if keep(it) {
			n++
		}
	}
	return n
}

// GetDashboard loads users, products, orders and inquiries in parallel and
// reports their counts. Any failed list fails the whole summary.
func GetDashboard(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		caller := session.Caller(session.FromContext(r.Context()))

		var (
			users     []models.User
			products  []models.Product
			orders    []models.Order
			inquiries []models.Inquiry
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			users, err = h.API.FetchAllUsers(ctx, caller)
			return err
		})
		g.Go(func() (err error) {
			products, err = h.API.FetchAdminProducts(ctx, caller)
			return err
		})
		g.Go(func() (err error) {
			orders, err = h.API.FetchAllOrders(ctx, caller)
			return err
		})
		g.Go(func() (err error) {
			inquiries, err = h.API.FetchAllInquiries(ctx, caller)
			return err
		})
		if err := g.Wait(); err != nil {
			utils.RespondWithAPIError(w, err, "Error loading dashboard stats")
			return
		}

		stats := Stats{
			TotalUsers:     len(users),
			TotalProducts:  len(products),
			TotalOrders:    len(orders),
			TotalInquiries: len(inquiries),
			PendingUsers:   count(users, func(u models.User) bool { return u.Status == models.UserPending }),
			PendingOrders:  count(orders, func(o models.Order) bool { return o.Status == models.OrderPending }),
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "stats": stats})
	}
}

// GetUsers lists accounts, narrowed by ?search=, ?status= and ?role=.
func GetUsers(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchAllUsers(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load users")
			return
		}
		q := utils.ParseListQuery(r)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"success": true,
			"users":   filter.Users(list, q.Search, q.Status, q.Role),
		})
	}
}

func UpdateUserStatus(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		var body models.UserStatusUpdate
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !body.Status.Valid() {
			utils.RespondWithError(w, http.StatusBadRequest, "Status must be pending, approved or suspended")
			return
		}
		sess := session.FromContext(r.Context())
		if err := h.API.UpdateUserStatus(r.Context(), session.Caller(sess), id, body.Status); err != nil {
			utils.RespondWithAPIError(w, err, "Failed to update user status")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "User status updated"})
	}
}

func GetUserOrders(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchOrdersByUser(r.Context(), session.Caller(sess), id)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load user orders")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orders": list})
	}
}
