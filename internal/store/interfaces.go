// Package store defines the persistence interfaces used by the handlers.
package store

import (
	"context"

	"github.com/gizmodojp/line-contact-api/types"
)

// InquiryStore persists contact-form submissions. Inquiries are insert-only:
// there are no update, delete or query operations in this service.
type InquiryStore interface {
	// CreateInquiry inserts the inquiry and populates its ID and CreatedAt
	// from the database. The returned ID is the correlation key used in logs.
	CreateInquiry(ctx context.Context, inquiry *types.Inquiry) (int64, error)
}
