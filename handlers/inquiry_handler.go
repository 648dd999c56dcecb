package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/gizmodojp/line-contact-api/errors"
	"github.com/gizmodojp/line-contact-api/internal/store"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/gizmodojp/line-contact-api/services"
	"github.com/gizmodojp/line-contact-api/types"
)

// Localized user-facing messages. Internal error detail never reaches the
// client; these are all it sees.
const (
	msgValidationFailed = "入力内容に誤りがあります。"
	msgAntiAbuseFailed  = "ボット検証に失敗しました。再度お試しください。"
	msgAuthFailed       = "LINE認証に失敗しました。再度お試しください。"
	msgSaveFailed       = "お問い合わせの保存に失敗しました。"
	msgAccepted         = "お問い合わせを受け付けました。確認メールをお送りしました。"
)

// InquiryHandler handles contact-form submission endpoints.
type InquiryHandler struct {
	inquiryStore store.InquiryStore
	antiAbuse    AntiAbuseVerifier
	identity     IdentityVerifier
	emailService types.EmailService
	jobs         JobSubmitter
}

// NewInquiryHandler creates a new InquiryHandler.
func NewInquiryHandler(
	inquiryStore store.InquiryStore,
	antiAbuse AntiAbuseVerifier,
	identity IdentityVerifier,
	emailService types.EmailService,
	jobs JobSubmitter,
) *InquiryHandler {
	return &InquiryHandler{
		inquiryStore: inquiryStore,
		antiAbuse:    antiAbuse,
		identity:     identity,
		emailService: emailService,
		jobs:         jobs,
	}
}

// SubmitInquiry godoc
// @Summary      Submit a contact-form inquiry
// @Description  Validates the submission, optionally verifies the Turnstile
// @Description  token and LINE ID token, persists the inquiry and queues the
// @Description  confirmation/notification emails.
// @Tags         inquiry
// @Accept       json
// @Produce      json
// @Param        body  body      types.InquiryCreate  true  "Inquiry payload"
// @Success      200   {object}  types.InquiryResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      401   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /api/inquiry [post]
func (h *InquiryHandler) SubmitInquiry(c *gin.Context) {
	log := logger.GetLogger()

	var req types.InquiryCreate
	if !bindJSONOrError(c, &req) {
		return
	}

	// Trim whitespace and re-validate the bounds that trimming can break.
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" {
		_ = c.Error(apperrors.ValidationFailed(msgValidationFailed, "name must not be blank"))
		return
	}
	if len([]rune(req.Message)) < 10 {
		_ = c.Error(apperrors.ValidationFailed(msgValidationFailed, "message must be at least 10 characters after trimming"))
		return
	}

	// Anti-abuse check, only when the client supplied a token.
	if req.TurnstileToken != "" {
		if !h.antiAbuse.Verify(c.Request.Context(), req.TurnstileToken) {
			_ = c.Error(apperrors.AntiAbuseRejected(msgAntiAbuseFailed))
			return
		}
	}

	// Identity check, only when the client supplied an ID token. The stored
	// line_user_id is always the verified subject, never a client value.
	var lineUserID *string
	if req.IDToken != "" {
		sub := h.identity.VerifyIDToken(c.Request.Context(), req.IDToken)
		if sub == "" {
			_ = c.Error(apperrors.AuthenticationFailed(msgAuthFailed))
			return
		}
		lineUserID = &sub
	}

	inquiry := &types.Inquiry{
		Name:       req.Name,
		Email:      req.Email,
		Category:   req.Category,
		Message:    req.Message,
		LineUserID: lineUserID,
	}

	id, err := h.inquiryStore.CreateInquiry(c.Request.Context(), inquiry)
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err, msgSaveFailed))
		return
	}

	log.Infow("Inquiry saved",
		"id", id,
		"category", req.Category,
		"line_user", lineUserID != nil)

	// Respond before the emails go out; their outcome is invisible to the
	// submitter and only ever logged.
	c.JSON(http.StatusOK, types.InquiryResponse{
		OK:      true,
		Message: msgAccepted,
	})

	h.jobs.Submit(services.Job{
		Name: "inquiry-emails",
		Execute: func(ctx context.Context) error {
			return h.emailService.SendInquiryEmails(ctx, req)
		},
	})
}

// bindJSONOrError binds the request body, attaching a validation error to
// the context on failure.
func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed(msgValidationFailed, err.Error()))
		return false
	}
	return true
}
