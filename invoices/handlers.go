// Package invoices covers the admin invoice workflow (draft, edit, submit)
// and the printable PDF of an issued invoice.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"musa/api"
	"musa/models"
	"musa/pricing"
	"musa/session"
	"musa/utils"
)

type Handler struct {
	API    *api.Client
	Drafts DraftStore
	Signer Signer
}

func draftsFailed(w http.ResponseWriter, op string, err error) {
	log.Printf("invoice drafts %s: %v", op, err)
	utils.RespondWithError(w, http.StatusServiceUnavailable, "Invoice drafts are unavailable")
}

func respondValidation(w http.ResponseWriter, err error) {
	var ve *pricing.ValidationError
	if errors.As(err, &ve) {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{
			"success":  false,
			"message":  "Invoice is incomplete",
			"problems": ve.Problems,
		})
		return
	}
	utils.RespondWithError(w, http.StatusBadRequest, err.Error())
}

func orderParam(w http.ResponseWriter, ps httprouter.Params, name string) (int, bool) {
	id, err := utils.ParamID(ps, name)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// CreateDraft opens an invoice draft for an order, or returns the one
// already open. The number is proposed from the order count and can be
// edited before submission.
func CreateDraft(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "id")
		if !ok {
			return
		}
		ctx := r.Context()

		if d, err := h.Drafts.Get(ctx, orderID); err == nil {
			utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "draft": d})
			return
		} else if !errors.Is(err, ErrDraftNotFound) {
			draftsFailed(w, "get", err)
			return
		}

		caller := session.Caller(session.FromContext(ctx))
		order, err := h.API.FetchAdminOrder(ctx, caller, orderID)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		if order.HasInvoice() {
			utils.RespondWithError(w, http.StatusConflict, "Order already has an invoice")
			return
		}
		if order.Status == models.OrderCancelled {
			utils.RespondWithError(w, http.StatusConflict, "Cancelled orders cannot be invoiced")
			return
		}

		all, err := h.API.FetchAllOrders(ctx, caller)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load orders")
			return
		}

		d := pricing.NewDraft(order, len(all)+1)
		if err := h.Drafts.Save(ctx, d); err != nil {
			draftsFailed(w, "save", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "draft": d})
	}
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, orderID int) (models.InvoiceDraft, bool) {
	d, err := h.Drafts.Get(ctx, orderID)
	if errors.Is(err, ErrDraftNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "No invoice draft for this order")
		return d, false
	}
	if err != nil {
		draftsFailed(w, "get", err)
		return d, false
	}
	return d, true
}

func GetDraft(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "orderid")
		if !ok {
			return
		}
		d, ok := h.load(r.Context(), w, orderID)
		if !ok {
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "draft": d})
	}
}

// UpdateDraft changes the invoice number of a draft.
func UpdateDraft(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "orderid")
		if !ok {
			return
		}
		var body struct {
			InvoiceNumber *string `json:"invoice_number"`
		}
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		d, ok := h.load(r.Context(), w, orderID)
		if !ok {
			return
		}
		if body.InvoiceNumber != nil {
			d.InvoiceNumber = strings.TrimSpace(*body.InvoiceNumber)
			d.UpdatedAt = time.Now().Unix()
		}
		if err := h.Drafts.Save(r.Context(), d); err != nil {
			draftsFailed(w, "save", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "draft": d})
	}
}

// UpdateDraftLine edits one line; every subtotal and the total are
// recomputed from scratch.
func UpdateDraftLine(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "orderid")
		if !ok {
			return
		}
		index, err := strconv.Atoi(ps.ByName("index"))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid line index %q", ps.ByName("index")))
			return
		}
		var edit pricing.Edit
		if err := utils.DecodeJSON(r, &edit); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		d, ok := h.load(r.Context(), w, orderID)
		if !ok {
			return
		}
		if err := pricing.ApplyEdit(&d, index, edit); err != nil {
			if errors.Is(err, pricing.ErrLineOutOfRange) {
				utils.RespondWithError(w, http.StatusNotFound, err.Error())
				return
			}
			respondValidation(w, err)
			return
		}
		if err := h.Drafts.Save(r.Context(), d); err != nil {
			draftsFailed(w, "save", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "draft": d})
	}
}

func DiscardDraft(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "orderid")
		if !ok {
			return
		}
		if err := h.Drafts.Delete(r.Context(), orderID); err != nil {
			draftsFailed(w, "delete", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
	}
}

// SubmitDraft issues the invoice. Incomplete drafts are refused with the
// list of what is missing; the draft is dropped once the backend accepts.
func SubmitDraft(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "orderid")
		if !ok {
			return
		}
		ctx := r.Context()
		d, ok := h.load(ctx, w, orderID)
		if !ok {
			return
		}
		d.Items, d.Total = pricing.Recalculate(d.Items)
		if err := pricing.Validate(d); err != nil {
			respondValidation(w, err)
			return
		}

		caller := session.Caller(session.FromContext(ctx))
		inv := d.Invoice()
		if err := h.API.CreateOrderInvoice(ctx, caller, orderID, inv); err != nil {
			utils.RespondWithAPIError(w, err, "Error creating invoice")
			return
		}
		if err := h.Drafts.Delete(ctx, orderID); err != nil {
			log.Printf("drop submitted draft %d: %v", orderID, err)
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{
			"success": true,
			"message": "Invoice created successfully!",
			"invoice": inv,
		})
	}
}

func (h *Handler) servePDF(w http.ResponseWriter, order models.Order) {
	if order.Invoice == nil {
		utils.RespondWithError(w, http.StatusNotFound, "This order has no invoice yet")
		return
	}
	pdf, err := RenderPDF(order, h.Signer)
	if err != nil {
		log.Printf("invoice pdf for order %d: %v", order.ID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+order.Invoice.InvoiceNumber+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// DownloadInvoice serves the customer's own invoice as a PDF.
func DownloadInvoice(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "id")
		if !ok {
			return
		}
		sess := session.FromContext(r.Context())
		order, err := h.API.FetchOrder(r.Context(), session.Caller(sess), orderID)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		h.servePDF(w, order)
	}
}

func DownloadInvoiceAdmin(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		orderID, ok := orderParam(w, ps, "id")
		if !ok {
			return
		}
		sess := session.FromContext(r.Context())
		order, err := h.API.FetchAdminOrder(r.Context(), session.Caller(sess), orderID)
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load order")
			return
		}
		h.servePDF(w, order)
	}
}

// VerifyInvoice checks the code scanned from a printed invoice.
func VerifyInvoice(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		number, orderID, err := h.Signer.Verify(r.URL.Query().Get("code"))
		if err != nil {
			utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "valid": false})
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"success":        true,
			"valid":          true,
			"invoice_number": number,
			"order_id":       orderID,
		})
	}
}
