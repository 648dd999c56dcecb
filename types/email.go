package types

import "context"

// EmailService sends the two notification emails for an accepted inquiry.
// It returns an error when at least one of the two sends failed; the caller
// only logs that outcome, it is never surfaced to the submitter.
type EmailService interface {
	SendInquiryEmails(ctx context.Context, inquiry InquiryCreate) error
}
