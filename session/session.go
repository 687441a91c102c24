// Package session holds what the browser used to keep in local storage:
// the backend tokens, the role and the last fetched profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"musa/api"
	"musa/globals"
	"musa/middleware"
	"musa/models"
	"musa/utils"
)

const EventUpdated = "session.updated"

// Publisher fans an event out to every tab of a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID, action string, payload any)
}

type Manager struct {
	Store  *Store
	API    *api.Client
	Auth   *middleware.Authenticator
	Events Publisher
}

// Caller gives the backend client the tokens held by sess.
func Caller(sess models.Session) api.Caller {
	return api.Caller{UserToken: sess.Token, AdminToken: sess.AdminToken}
}

// Create starts an anonymous session and signs a token for it.
func (m *Manager) Create(ctx context.Context) (models.Session, string, error) {
	id := uuid.NewString()
	sess, err := m.Store.Update(ctx, id, func(*models.Session) error { return nil })
	if err != nil {
		return models.Session{}, "", err
	}
	token, err := m.Auth.IssueToken(id)
	if err != nil {
		return models.Session{}, "", fmt.Errorf("sign session token: %w", err)
	}
	return sess, token, nil
}

func (m *Manager) update(ctx context.Context, id string, fn func(*models.Session) error) (models.Session, error) {
	sess, err := m.Store.Update(ctx, id, fn)
	if err != nil {
		return sess, err
	}
	if m.Events != nil {
		m.Events.Publish(ctx, id, EventUpdated, sess.View())
	}
	return sess, nil
}

func signIn(sess *models.Session, token string, u models.User) {
	sess.Token = token
	sess.User = &u
	sess.Approved = u.Status == models.UserApproved
}

// Login authenticates against the backend and stores the user token.
func (m *Manager) Login(ctx context.Context, id string, creds models.Credentials) (models.Session, error) {
	res, err := m.API.LoginUser(ctx, creds)
	if err != nil {
		return models.Session{}, err
	}
	return m.finishLogin(ctx, id, res)
}

// Register creates the account. When the backend signs the new user in
// straight away the session is logged in too.
func (m *Manager) Register(ctx context.Context, id string, reg models.Registration) (models.Session, error) {
	res, err := m.API.RegisterUser(ctx, reg)
	if err != nil {
		return models.Session{}, err
	}
	if res.Token == "" {
		return m.Store.Load(ctx, id)
	}
	return m.finishLogin(ctx, id, res)
}

func (m *Manager) finishLogin(ctx context.Context, id string, res api.AuthResult) (models.Session, error) {
	if res.Token == "" {
		return models.Session{}, &api.ServerError{Status: http.StatusBadGateway, Message: "Login response carried no token"}
	}
	u := res.User
	if u == nil {
		p, err := m.API.FetchProfile(ctx, api.Caller{UserToken: res.Token})
		if err != nil {
			return models.Session{}, err
		}
		u = &p
	}
	return m.update(ctx, id, func(s *models.Session) error {
		signIn(s, res.Token, *u)
		return nil
	})
}

func (m *Manager) AdminLogin(ctx context.Context, id string, creds models.Credentials) (models.Session, error) {
	res, err := m.API.LoginAdmin(ctx, creds)
	if err != nil {
		return models.Session{}, err
	}
	if res.Token == "" {
		return models.Session{}, &api.ServerError{Status: http.StatusBadGateway, Message: "Login response carried no token"}
	}
	return m.update(ctx, id, func(s *models.Session) error {
		s.AdminToken = res.Token
		s.Role = "admin"
		return nil
	})
}

func (m *Manager) Logout(ctx context.Context, id string) (models.Session, error) {
	return m.update(ctx, id, func(s *models.Session) error {
		s.Token = ""
		s.User = nil
		s.Approved = false
		return nil
	})
}

func (m *Manager) AdminLogout(ctx context.Context, id string) (models.Session, error) {
	return m.update(ctx, id, func(s *models.Session) error {
		s.AdminToken = ""
		s.Role = ""
		return nil
	})
}

// Rehydrate refreshes the profile behind a stored user token. A failed
// fetch leaves the session unauthenticated and is not reported.
func (m *Manager) Rehydrate(ctx context.Context, id string) models.Session {
	sess, err := m.Store.Load(ctx, id)
	if err != nil {
		log.Printf("rehydrate %s: %v", id, err)
		return models.Session{ID: id}
	}
	if sess.Token == "" {
		return sess
	}
	u, err := m.API.FetchProfile(ctx, Caller(sess))
	updated, uerr := m.Store.Update(ctx, id, func(s *models.Session) error {
		if s.Token != sess.Token {
			// logged out or in again meanwhile
			return nil
		}
		if err != nil {
			s.User = nil
			s.Approved = false
			return nil
		}
		signIn(s, s.Token, u)
		return nil
	})
	if err != nil {
		log.Printf("rehydrate %s: profile: %v", id, err)
	}
	if uerr != nil {
		log.Printf("rehydrate %s: %v", id, uerr)
		sess.User = nil
		sess.Approved = false
		return sess
	}
	return updated
}

// SetProfile stores a profile the backend has just returned.
func (m *Manager) SetProfile(ctx context.Context, id string, u models.User) (models.Session, error) {
	return m.update(ctx, id, func(s *models.Session) error {
		if s.Token == "" {
			return errors.New("not logged in")
		}
		s.User = &u
		s.Approved = u.Status == models.UserApproved
		return nil
	})
}

// FromContext returns the session loaded by Load.
func FromContext(ctx context.Context) models.Session {
	sess, _ := ctx.Value(globals.SessionKey).(models.Session)
	return sess
}

func withSession(ctx context.Context, sess models.Session) context.Context {
	return context.WithValue(ctx, globals.SessionKey, sess)
}

// Load reads the session named by the token into the request context.
// Requests without a session get an empty one.
func (m *Manager) Load(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var sess models.Session
		if id := middleware.GetSessionID(r.Context()); id != "" {
			var err error
			sess, err = m.Store.Load(r.Context(), id)
			if err != nil {
				log.Printf("load session %s: %v", id, err)
				utils.RespondWithError(w, http.StatusServiceUnavailable, "Session store unavailable")
				return
			}
		}
		next(w, r.WithContext(withSession(r.Context(), sess)), ps)
	}
}

// RequireUser rejects requests whose session has no logged-in user.
func RequireUser(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !FromContext(r.Context()).IsAuthenticated() {
			utils.RespondWithError(w, http.StatusUnauthorized, "Please log in to continue")
			return
		}
		next(w, r, ps)
	}
}

func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !FromContext(r.Context()).IsAdmin() {
			utils.RespondWithError(w, http.StatusUnauthorized, "Admin login required")
			return
		}
		next(w, r, ps)
	}
}
