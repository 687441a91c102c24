package models

import "time"

// Session is the server-side replacement for the browser's local storage:
// the user token, the admin token, the role and the last known profile.
type Session struct {
	ID         string    `json:"id"`
	Token      string    `json:"token,omitempty"`
	AdminToken string    `json:"admin_token,omitempty"`
	Role       string    `json:"role,omitempty"`
	User       *User     `json:"user,omitempty"`
	Approved   bool      `json:"approved"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s Session) IsAuthenticated() bool { return s.Token != "" && s.User != nil }

// IsAdmin requires both the admin token and the admin role, as a half
// written admin login must not grant access.
func (s Session) IsAdmin() bool { return s.AdminToken != "" && s.Role == "admin" }

// View is what the session endpoints return; tokens stay on the server.
func (s Session) View() SessionView {
	return SessionView{
		Authenticated:      s.IsAuthenticated(),
		AdminAuthenticated: s.IsAdmin(),
		Approved:           s.Approved,
		User:               s.User,
	}
}

type SessionView struct {
	Authenticated      bool  `json:"isAuthenticated"`
	AdminAuthenticated bool  `json:"isAdminAuthenticated"`
	Approved           bool  `json:"isApproved"`
	User               *User `json:"user,omitempty"`
}
