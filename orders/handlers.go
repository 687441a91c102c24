package orders

import (
	"errors"
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
	API *api.Client
}

// View is an order together with what the viewer may do with it.
type View struct {
	models.Order
	Actions Actions `json:"actions"`
}

func views(list []models.Order, actions func(models.Order) Actions) []View {
	out := make([]View, 0, len(list))
	for _, o := range list {
		out = append(out, View{Order: o, Actions: actions(o)})
	}
	return out
}

// GetMyOrders lists the caller's orders, optionally narrowed by ?search=
// and ?status=.
func GetMyOrders(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchUserOrders(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load orders")
			return
		}
		q := utils.ParseListQuery(r)
		list = filter.Orders(list, q.Search, q.Status)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orders": views(list, CustomerActions)})
	}
}

func GetMyOrder(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess := session.FromContext(r.Context())
		o, err := h.API.FetchOrder(r.Context(), session.Caller(sess), id)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": View{o, CustomerActions(o)}})
	}
}

// GetAllOrders is the back-office order list.
func GetAllOrders(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchAllOrders(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load orders")
			return
		}
		q := utils.ParseListQuery(r)
		list = filter.Orders(list, q.Search, q.Status)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orders": views(list, AdminActions)})
	}
}

func GetOrderAdmin(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess := session.FromContext(r.Context())
		o, err := h.API.FetchAdminOrder(r.Context(), session.Caller(sess), id)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": View{o, AdminActions(o)}})
	}
}

// UpdateOrderStatus moves an order along its lifecycle. The move is checked
// against the order's current status before the backend is asked.
func UpdateOrderStatus(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		var upd models.StatusUpdate
		if err := utils.DecodeJSON(r, &upd); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if upd.DeliveryDate != "" {
			if _, err := time.Parse(time.DateOnly, upd.DeliveryDate); err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "delivery date must be YYYY-MM-DD")
				return
			}
		}

		ctx := r.Context()
		caller := session.Caller(session.FromContext(ctx))
		current, err := h.API.FetchAdminOrder(ctx, caller, id)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		if upd.Status == "" {
			upd.Status = current.Status
		}
		if err := CheckTransition(current.Status, upd.Status); err != nil {
			status := http.StatusConflict
			if errors.Is(err, ErrUnknownStatus) {
				status = http.StatusBadRequest
			}
			utils.RespondWithError(w, status, err.Error())
			return
		}

		if err := h.API.UpdateOrderStatus(ctx, caller, id, upd); err != nil {
			utils.RespondWithAPIError(w, err, "Failed to update order status")
			return
		}
		current.Status = upd.Status
		if upd.DeliveryDate != "" {
			current.DeliveryDate = upd.DeliveryDate
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"success": true,
			"message": "Order status updated",
			"order":   View{current, AdminActions(current)},
		})
	}
}
