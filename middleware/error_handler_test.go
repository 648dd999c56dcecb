package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	apperrors "github.com/gizmodojp/line-contact-api/errors"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

func runWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(err)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	return w
}

func TestErrorHandler_AppError(t *testing.T) {
	w := runWithError(t, apperrors.AuthenticationFailed("LINE認証に失敗しました。再度お試しください。"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTHENTICATION_ERROR", resp["type"])
	assert.Equal(t, "LINE認証に失敗しました。再度お試しください。", resp["message"])
	assert.Equal(t, "401", resp["code"])
}

func TestErrorHandler_ValidationDetailExposed(t *testing.T) {
	w := runWithError(t, apperrors.ValidationFailed("入力内容に誤りがあります。", "message must be at least 10 characters"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["type"])
	assert.Equal(t, "message must be at least 10 characters", resp["details"],
		"validation detail helps the client fix its input")
}

func TestErrorHandler_DatabaseDetailHidden(t *testing.T) {
	raw := errors.New(`pq: relation "inquiries" does not exist`)
	w := runWithError(t, apperrors.NewDatabaseError(raw, "お問い合わせの保存に失敗しました。"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DATABASE_ERROR", resp["type"])
	assert.Equal(t, "お問い合わせの保存に失敗しました。", resp["message"])
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestErrorHandler_UnknownError(t *testing.T) {
	w := runWithError(t, errors.New("something unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SERVER_ERROR", resp["type"])
	assert.Equal(t, "Internal Server Error", resp["message"])
}

func TestErrorHandler_NoError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}
