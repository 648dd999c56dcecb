package types

import "time"

// Inquiry represents a contact-form submission stored in the database.
// Rows are insert-only; an inquiry is never updated or deleted.
type Inquiry struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	LineUserID *string   `json:"line_user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// InquiryCreate represents the request body for submitting an inquiry.
// Both tokens are optional; an absent token skips the corresponding
// verification step.
type InquiryCreate struct {
	Name           string `json:"name" binding:"required,min=1,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Category       string `json:"category" binding:"required,min=1,max=50"`
	Message        string `json:"message" binding:"required,min=10,max=4000"`
	IDToken        string `json:"idToken,omitempty"`
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

// InquiryResponse is the acknowledgment returned to the Mini App.
type InquiryResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
