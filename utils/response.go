package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"musa/api"
)

type M map[string]any

// RespondWithError writes the same envelope the backend uses, so the
// browser sees one error shape whichever side failed.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"success": false, "message": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// RespondWithAPIError maps a backend client error onto a response.
// fallback is shown when the backend gave no message of its own.
func RespondWithAPIError(w http.ResponseWriter, err error, fallback string) {
	var (
		se *api.ServerError
		te *api.TransportError
		de *api.DecodeError
	)
	switch {
	case errors.Is(err, api.ErrMissingCredential):
		RespondWithError(w, http.StatusUnauthorized, "Please log in to continue")
	case errors.As(err, &se):
		status := se.Status
		if status < 400 || status > 599 {
			status = http.StatusBadRequest
		}
		RespondWithError(w, status, api.Message(err, fallback))
	case errors.As(err, &te), errors.As(err, &de):
		log.Printf("backend: %v", err)
		RespondWithError(w, http.StatusBadGateway, fallback)
	default:
		log.Printf("unexpected error: %v", err)
		RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
