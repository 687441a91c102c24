package session

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"musa/middleware"
	"musa/models"
	"musa/utils"
)

// ensure returns the caller's session id, creating a session (and a token
// the caller has to keep) when the request carried none.
func (m *Manager) ensure(ctx context.Context) (id, token string, err error) {
	if id := middleware.GetSessionID(ctx); id != "" {
		return id, "", nil
	}
	sess, token, err := m.Create(ctx)
	if err != nil {
		return "", "", err
	}
	return sess.ID, token, nil
}

func respondSession(w http.ResponseWriter, status int, sess models.Session, token string) {
	body := utils.M{"success": true, "session": sess.View()}
	if token != "" {
		body["token"] = token
	}
	utils.RespondWithJSON(w, status, body)
}

// CreateSession issues a token for a new anonymous session.
func (m *Manager) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, token, err := m.Create(r.Context())
	if err != nil {
		log.Printf("create session: %v", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Could not start a session")
		return
	}
	respondSession(w, http.StatusCreated, sess, token)
}

// GetSession is the page-load check: it revalidates the stored user token
// against the backend profile.
func (m *Manager) GetSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess := m.Rehydrate(r.Context(), middleware.GetSessionID(r.Context()))
	respondSession(w, http.StatusOK, sess, "")
}

func readCredentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if err := utils.DecodeJSON(r, &creds); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return creds, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return creds, false
	}
	return creds, true
}

func (m *Manager) LoginHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	id, token, err := m.ensure(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Could not start a session")
		return
	}
	sess, err := m.Login(r.Context(), id, creds)
	if err != nil {
		utils.RespondWithAPIError(w, err, "Login failed")
		return
	}
	respondSession(w, http.StatusOK, sess, token)
}

func (m *Manager) RegisterHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var reg models.Registration
	if err := utils.DecodeJSON(r, &reg); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	id, token, err := m.ensure(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Could not start a session")
		return
	}
	sess, err := m.Register(r.Context(), id, reg)
	if err != nil {
		utils.RespondWithAPIError(w, err, "Registration failed")
		return
	}
	respondSession(w, http.StatusCreated, sess, token)
}

func (m *Manager) LogoutHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := m.Logout(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		log.Printf("logout: %v", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Logout failed")
		return
	}
	respondSession(w, http.StatusOK, sess, "")
}

func (m *Manager) AdminLoginHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	id, token, err := m.ensure(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Could not start a session")
		return
	}
	sess, err := m.AdminLogin(r.Context(), id, creds)
	if err != nil {
		utils.RespondWithAPIError(w, err, "Admin login failed")
		return
	}
	respondSession(w, http.StatusOK, sess, token)
}

func (m *Manager) AdminLogoutHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := m.AdminLogout(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		log.Printf("admin logout: %v", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Logout failed")
		return
	}
	respondSession(w, http.StatusOK, sess, "")
}

// GetProfile fetches the profile from the backend and refreshes the copy
// held in the session.
func (m *Manager) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess := FromContext(r.Context())
	u, err := m.API.FetchProfile(r.Context(), Caller(sess))
	if err != nil {
		utils.RespondWithAPIError(w, err, "Failed to load profile")
		return
	}
	if _, err := m.SetProfile(r.Context(), sess.ID, u); err != nil {
		log.Printf("store profile: %v", err)
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": u})
}

func (m *Manager) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess := FromContext(r.Context())
	var u models.User
	if err := utils.DecodeJSON(r, &u); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	// the backend owns these
	u.ID = sess.User.ID
	u.Role = sess.User.Role
	u.Status = sess.User.Status

	updated, err := m.API.UpdateProfile(r.Context(), Caller(sess), u)
	if err != nil {
		utils.RespondWithAPIError(w, err, "Failed to update profile")
		return
	}
	if _, err := m.SetProfile(r.Context(), sess.ID, updated); err != nil {
		log.Printf("store profile: %v", err)
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": updated, "message": "Profile updated"})
}
