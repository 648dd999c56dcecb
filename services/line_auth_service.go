package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/gizmodojp/line-contact-api/logger"
	"go.uber.org/zap"
)

const (
	lineVerifyURL = "https://api.line.me/oauth2/v2.1/verify"
	lineIssuer    = "https://access.line.me"
	lineTimeout   = 5 * time.Second
)

// LineAuthService verifies LINE ID tokens via LINE's token verification
// endpoint and extracts the stable user identifier from the claims.
type LineAuthService struct {
	channelID  string
	verifyURL  string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// LineAuthOption configures the service.
type LineAuthOption func(*LineAuthService)

// WithLineHTTPClient sets a custom HTTP client.
func WithLineHTTPClient(client *http.Client) LineAuthOption {
	return func(s *LineAuthService) {
		s.httpClient = client
	}
}

// WithLineVerifyURL overrides the verification endpoint.
func WithLineVerifyURL(url string) LineAuthOption {
	return func(s *LineAuthService) {
		s.verifyURL = url
	}
}

// withLineClock overrides the clock used for expiry checks in tests.
func withLineClock(now func() time.Time) LineAuthOption {
	return func(s *LineAuthService) {
		s.now = now
	}
}

// NewLineAuthService creates a new LineAuthService.
func NewLineAuthService(cfg *config.LineConfig, opts ...LineAuthOption) *LineAuthService {
	s := &LineAuthService{
		channelID: cfg.ChannelID,
		verifyURL: lineVerifyURL,
		httpClient: &http.Client{
			Timeout: lineTimeout,
		},
		logger: logger.GetLogger().Named("line-auth"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// lineVerifyResponse carries the claims returned by the verify endpoint.
type lineVerifyResponse struct {
	Iss string `json:"iss"`
	Sub string `json:"sub"`
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
}

// VerifyIDToken validates a LINE ID token and returns the verified LINE user
// ID, or the empty string when the token is invalid. The issuer, audience
// and expiry claims are enforced in that order; any transport error or
// malformed payload is treated as invalid and never propagated.
func (s *LineAuthService) VerifyIDToken(ctx context.Context, idToken string) string {
	if idToken == "" {
		return ""
	}

	form := url.Values{
		"id_token":  {idToken},
		"client_id": {s.channelID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Errorw("Failed to build LINE verify request", "error", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Errorw("Error verifying LINE ID token", "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warnw("LINE ID token verification failed", "status", resp.StatusCode)
		return ""
	}

	var claims lineVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		s.logger.Errorw("Failed to decode LINE verify response", "error", err)
		return ""
	}

	if claims.Iss != lineIssuer {
		s.logger.Warnw("Invalid issuer in LINE ID token", "iss", claims.Iss)
		return ""
	}

	if claims.Aud != s.channelID {
		s.logger.Warn("Invalid audience in LINE ID token")
		return ""
	}

	if claims.Exp < s.now().Unix() {
		s.logger.Warn("LINE ID token has expired")
		return ""
	}

	return claims.Sub
}
