package api

import (
	"context"
	"fmt"
	"net/http"

	"musa/models"
)

type inquiryList struct {
	Envelope
	Inquiries []models.Inquiry `json:"inquiries"`
}

func (c *Client) SubmitInquiry(ctx context.Context, caller Caller, inq models.Inquiry) error {
	return c.sendJSON(ctx, caller, User, http.MethodPost, "/inquiries", inq, nil)
}

// SubmitPublicInquiry is the contact form for visitors without an account.
func (c *Client) SubmitPublicInquiry(ctx context.Context, caller Caller, inq models.Inquiry) error {
	return c.sendJSON(ctx, caller, Public, http.MethodPost, "/inquiries/public", inq, nil)
}

func (c *Client) FetchUserInquiries(ctx context.Context, caller Caller) ([]models.Inquiry, error) {
	var resp inquiryList
	err := c.getJSON(ctx, caller, User, "/inquiries/my", &resp)
	return resp.Inquiries, err
}

func (c *Client) FetchAllInquiries(ctx context.Context, caller Caller) ([]models.Inquiry, error) {
	var resp inquiryList
	err := c.getJSON(ctx, caller, Admin, "/inquiries/all", &resp)
	return resp.Inquiries, err
}

func (c *Client) UpdateInquiryStatus(ctx context.Context, caller Caller, id int, status models.InquiryStatus) error {
	path := fmt.Sprintf("/inquiries/%d/status", id)
	return c.sendJSON(ctx, caller, Admin, http.MethodPut, path, models.InquiryStatusUpdate{Status: status}, nil)
}
