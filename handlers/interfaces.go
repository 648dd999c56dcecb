package handlers

import (
	"context"

	"github.com/gizmodojp/line-contact-api/services"
)

// AntiAbuseVerifier checks a challenge token and reports whether the
// interaction was judged legitimate. Errors are folded into false.
type AntiAbuseVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// IdentityVerifier validates an ID token and returns the verified user ID,
// or the empty string when the token is invalid.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) string
}

// JobSubmitter queues background work after the response has been written.
type JobSubmitter interface {
	Submit(job services.Job) bool
}
