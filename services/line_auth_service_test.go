package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannelID = "1234567890"

// lineVerifyStub returns a verify endpoint serving fixed claims.
func lineVerifyStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostFormValue("id_token"))
		assert.Equal(t, testChannelID, r.PostFormValue("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestLineAuth(serverURL string, opts ...LineAuthOption) *LineAuthService {
	opts = append([]LineAuthOption{WithLineVerifyURL(serverURL)}, opts...)
	return NewLineAuthService(&config.LineConfig{ChannelID: testChannelID}, opts...)
}

func TestVerifyIDToken_Success(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	server := lineVerifyStub(t, http.StatusOK, fmt.Sprintf(
		`{"iss":"https://access.line.me","sub":"U1234567890abcdef","aud":"%s","exp":%d}`,
		testChannelID, exp))
	defer server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "U1234567890abcdef", svc.VerifyIDToken(context.Background(), "valid-token"))
}

func TestVerifyIDToken_EmptyToken(t *testing.T) {
	svc := NewLineAuthService(&config.LineConfig{ChannelID: testChannelID})
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), ""))
}

func TestVerifyIDToken_NonOKStatus(t *testing.T) {
	server := lineVerifyStub(t, http.StatusBadRequest,
		`{"error":"invalid_request","error_description":"Invalid IdToken."}`)
	defer server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), "tampered-token"))
}

func TestVerifyIDToken_WrongIssuer(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	server := lineVerifyStub(t, http.StatusOK, fmt.Sprintf(
		`{"iss":"https://evil.example.com","sub":"U1","aud":"%s","exp":%d}`,
		testChannelID, exp))
	defer server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), "token"))
}

func TestVerifyIDToken_WrongAudience(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	server := lineVerifyStub(t, http.StatusOK, fmt.Sprintf(
		`{"iss":"https://access.line.me","sub":"U1","aud":"other-channel","exp":%d}`, exp))
	defer server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), "token"))
}

func TestVerifyIDToken_Expired(t *testing.T) {
	// A fixed clock makes the boundary exact: exp one second in the past
	// is rejected, exp equal to now is still accepted.
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		exp  int64
		sub  string
		want string
	}{
		{"expired one second ago", now.Unix() - 1, "U1", ""},
		{"expires exactly now", now.Unix(), "U1", "U1"},
		{"expires in the future", now.Unix() + 60, "U1", "U1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := lineVerifyStub(t, http.StatusOK, fmt.Sprintf(
				`{"iss":"https://access.line.me","sub":"%s","aud":"%s","exp":%d}`,
				tt.sub, testChannelID, tt.exp))
			defer server.Close()

			svc := newTestLineAuth(server.URL, withLineClock(func() time.Time { return now }))
			assert.Equal(t, tt.want, svc.VerifyIDToken(context.Background(), "token"))
		})
	}
}

func TestVerifyIDToken_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), "token"))
}

func TestVerifyIDToken_MalformedResponse(t *testing.T) {
	server := lineVerifyStub(t, http.StatusOK, `{{{`)
	defer server.Close()

	svc := newTestLineAuth(server.URL)
	assert.Equal(t, "", svc.VerifyIDToken(context.Background(), "token"))
}
