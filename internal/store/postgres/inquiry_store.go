// Package postgres provides pgx-backed implementations of the store interfaces.
package postgres

import (
	"context"
	"fmt"

	"github.com/gizmodojp/line-contact-api/internal/store"
	"github.com/gizmodojp/line-contact-api/types"
	"github.com/jackc/pgx/v5"
)

// DBPool is the subset of pgxpool.Pool the inquiry store needs. It is
// satisfied by both *pgxpool.Pool and pgxmock's pool interface.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure InquiryStore implements store.InquiryStore
var _ store.InquiryStore = (*InquiryStore)(nil)

// InquiryStore persists inquiries in the inquiries table.
type InquiryStore struct {
	pool DBPool
}

// NewInquiryStore creates a new InquiryStore backed by the given pool.
func NewInquiryStore(pool DBPool) *InquiryStore {
	return &InquiryStore{pool: pool}
}

// CreateInquiry inserts a new inquiry and returns the generated ID.
// The row's created_at is assigned by the database and scanned back so the
// in-memory inquiry matches the persisted record.
func (s *InquiryStore) CreateInquiry(ctx context.Context, inquiry *types.Inquiry) (int64, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO inquiries (name, email, category, message, line_user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		inquiry.Name, inquiry.Email, inquiry.Category, inquiry.Message, inquiry.LineUserID,
	).Scan(&inquiry.ID, &inquiry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create inquiry: %w", err)
	}
	return inquiry.ID, nil
}
