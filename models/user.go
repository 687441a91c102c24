package models

type ApprovalStatus string

const (
	UserPending   ApprovalStatus = "pending"
	UserApproved  ApprovalStatus = "approved"
	UserSuspended ApprovalStatus = "suspended"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case UserPending, UserApproved, UserSuspended:
		return true
	}
	return false
}

type User struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	BusinessName string         `json:"business_name,omitempty"`
	Address      string         `json:"address,omitempty"`
	Role         string         `json:"role,omitempty"`
	Status       ApprovalStatus `json:"status,omitempty"`
}

// Credentials is the body of the login endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /users/register.
type Registration struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Address      string `json:"address,omitempty"`
}

// UserStatusUpdate is the body of PUT /admin/users/:id/status.
type UserStatusUpdate struct {
	Status ApprovalStatus `json:"status"`
}
