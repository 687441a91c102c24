package api

import (
	"context"
	"fmt"
	"net/http"

	"musa/models"
)

// AuthResult is what the login endpoints return.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

func (c *Client) LoginUser(ctx context.Context, creds models.Credentials) (AuthResult, error) {
	var resp struct {
		Envelope
		AuthResult
	}
	err := c.sendJSON(ctx, Caller{}, Anonymous, http.MethodPost, "/users/login", creds, &resp)
	return resp.AuthResult, err
}

func (c *Client) RegisterUser(ctx context.Context, reg models.Registration) (AuthResult, error) {
	var resp struct {
		Envelope
		AuthResult
	}
	err := c.sendJSON(ctx, Caller{}, Anonymous, http.MethodPost, "/users/register", reg, &resp)
	return resp.AuthResult, err
}

func (c *Client) LoginAdmin(ctx context.Context, creds models.Credentials) (AuthResult, error) {
	var resp struct {
		Envelope
		AuthResult
	}
	err := c.sendJSON(ctx, Caller{}, Anonymous, http.MethodPost, "/admin/login", creds, &resp)
	return resp.AuthResult, err
}

func (c *Client) FetchProfile(ctx context.Context, caller Caller) (models.User, error) {
	var resp struct {
		Envelope
		User models.User `json:"user"`
	}
	err := c.getJSON(ctx, caller, User, "/users/profile", &resp)
	return resp.User, err
}

func (c *Client) UpdateProfile(ctx context.Context, caller Caller, u models.User) (models.User, error) {
	var resp struct {
		Envelope
		User *models.User `json:"user"`
	}
	if err := c.sendJSON(ctx, caller, User, http.MethodPut, "/users/profile", u, &resp); err != nil {
		return models.User{}, err
	}
	if resp.User == nil {
		return u, nil
	}
	return *resp.User, nil
}

func (c *Client) FetchAllUsers(ctx context.Context, caller Caller) ([]models.User, error) {
	var resp struct {
		Envelope
		Users []models.User `json:"users"`
	}
	err := c.getJSON(ctx, caller, Admin, "/admin/users", &resp)
	return resp.Users, err
}

func (c *Client) UpdateUserStatus(ctx context.Context, caller Caller, userID int, status models.ApprovalStatus) error {
	path := fmt.Sprintf("/admin/users/%d/status", userID)
	return c.sendJSON(ctx, caller, Admin, http.MethodPut, path, models.UserStatusUpdate{Status: status}, nil)
}
