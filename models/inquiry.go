package models

type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "new"
	InquiryResponded InquiryStatus = "responded"
	InquiryClosed    InquiryStatus = "closed"
)

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryNew, InquiryResponded, InquiryClosed:
		return true
	}
	return false
}

type Inquiry struct {
	ID          int           `json:"id"`
	UserName    string        `json:"user_name,omitempty"`
	ProductID   int           `json:"product_id,omitempty"`
	ProductName string        `json:"product_name,omitempty"`
	Name        string        `json:"name,omitempty"`
	Email       string        `json:"email,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Message     string        `json:"message"`
	Status      InquiryStatus `json:"status,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
}

// InquiryStatusUpdate is the body of PUT /inquiries/:id/status.
type InquiryStatusUpdate struct {
	Status InquiryStatus `json:"status"`
}
