package inquiries

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"musa/api"
	"musa/filter"
	"musa/models"
	"musa/session"
	"musa/utils"
)

const maxMessageLen = 4000

type Handler struct {
	API *api.Client
}

func clean(inq *models.Inquiry) string {
	inq.Name = strings.TrimSpace(inq.Name)
	inq.Email = strings.TrimSpace(inq.Email)
	inq.Phone = strings.TrimSpace(inq.Phone)
	inq.Message = strings.TrimSpace(inq.Message)
	switch {
	case inq.Message == "":
		return "Message is required"
	case len(inq.Message) > maxMessageLen:
		return "Message is too long"
	}
	return ""
}

// SubmitInquiry records a logged-in customer's question, optionally about
// a product.
func SubmitInquiry(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var in models.Inquiry
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if problem := clean(&in); problem != "" {
			utils.RespondWithError(w, http.StatusBadRequest, problem)
			return
		}
		inq := models.Inquiry{ProductID: in.ProductID, Message: in.Message}

		sess := session.FromContext(r.Context())
		if err := h.API.SubmitInquiry(r.Context(), session.Caller(sess), inq); err != nil {
			utils.RespondWithAPIError(w, err, "Error submitting inquiry")
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "message": "Inquiry submitted successfully!"})
	}
}

// SubmitPublicInquiry is the landing page contact form. Visitors give a
// name and a way to reach them.
func SubmitPublicInquiry(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var in models.Inquiry
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		problem := clean(&in)
		if problem == "" && in.Name == "" {
			problem = "Name is required"
		}
		if problem == "" && in.Phone == "" && in.Email == "" {
			problem = "Phone or email is required"
		}
		if problem != "" {
			utils.RespondWithError(w, http.StatusBadRequest, problem)
			return
		}
		inq := models.Inquiry{Name: in.Name, Email: in.Email, Phone: in.Phone, Message: in.Message}

		sess := session.FromContext(r.Context())
		if err := h.API.SubmitPublicInquiry(r.Context(), session.Caller(sess), inq); err != nil {
			utils.RespondWithAPIError(w, err, "Error submitting inquiry")
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "message": "Thank you! We will get back to you soon."})
	}
}

func GetMyInquiries(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchUserInquiries(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load inquiries")
			return
		}
		q := utils.ParseListQuery(r)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "inquiries": filter.Inquiries(list, q.Search, q.Status)})
	}
}

// GetAllInquiries is the back-office inbox, narrowed by ?search= (user,
// product, message) and ?status=.
func GetAllInquiries(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		list, err := h.API.FetchAllInquiries(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load inquiries")
			return
		}
		q := utils.ParseListQuery(r)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "inquiries": filter.Inquiries(list, q.Search, q.Status)})
	}
}

func UpdateInquiryStatus(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := utils.ParamID(ps, "id")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		var body models.InquiryStatusUpdate
		if err := utils.DecodeJSON(r, &body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !body.Status.Valid() {
			utils.RespondWithError(w, http.StatusBadRequest, "Status must be new, responded or closed")
			return
		}
		sess := session.FromContext(r.Context())
		if err := h.API.UpdateInquiryStatus(r.Context(), session.Caller(sess), id, body.Status); err != nil {
			utils.RespondWithAPIError(w, err, "Failed to update inquiry")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Inquiry status updated"})
	}
}
