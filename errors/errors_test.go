package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestAppError_Error(t *testing.T) {
	withDetail := ValidationFailed("入力内容に誤りがあります。", "name is required")
	assert.Equal(t, "VALIDATION_ERROR: 入力内容に誤りがあります。 (name is required)", withDetail.Error())

	withoutDetail := AuthenticationFailed("LINE認証に失敗しました。")
	assert.Equal(t, "AUTHENTICATION_ERROR: LINE認証に失敗しました。", withoutDetail.Error())
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{ValidationError, http.StatusBadRequest},
		{AntiAbuseError, http.StatusBadRequest},
		{AuthError, http.StatusUnauthorized},
		{NotFoundError, http.StatusNotFound},
		{DatabaseError, http.StatusInternalServerError},
		{ServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.errType, "msg", "").GetHTTPStatus())
		})
	}
}

func TestWrap(t *testing.T) {
	raw := stderrors.New("underlying failure")
	wrapped := Wrap(raw, DatabaseError, "保存に失敗しました。")

	require.NotNil(t, wrapped)
	assert.Equal(t, DatabaseError, wrapped.Type)
	assert.Equal(t, "underlying failure", wrapped.Detail)
	assert.ErrorIs(t, wrapped, raw)

	assert.Nil(t, Wrap(nil, DatabaseError, "msg"))
}

func TestNewDatabaseError_HidesRawDetail(t *testing.T) {
	raw := stderrors.New(`pq: relation "inquiries" does not exist`)
	err := NewDatabaseError(raw, "お問い合わせの保存に失敗しました。")

	assert.Equal(t, http.StatusInternalServerError, err.GetHTTPStatus())
	assert.Empty(t, err.Detail, "raw database detail stays out of the client-visible error")
	assert.ErrorIs(t, err, raw)
}
