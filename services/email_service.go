package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/gizmodojp/line-contact-api/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

// categoryNames maps inquiry category codes to Japanese display names.
// Unrecognized codes are displayed as-is.
var categoryNames = map[string]string{
	"general":    "一般的なお問い合わせ",
	"support":    "サポート",
	"bug":        "不具合報告",
	"suggestion": "ご提案",
}

// CategoryDisplayName returns the display name for a category code, falling
// back to the raw code for unknown categories.
func CategoryDisplayName(category string) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return category
}

// emailSender is the slice of the Resend Emails API the service uses.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// EmailService sends the two notification emails for an accepted inquiry:
// a confirmation to the submitter and an alert to the admin address.
// It is invoked only after the inquiry row has been persisted, from a
// background worker, so its outcome never affects the HTTP response.
type EmailService struct {
	config  *config.EmailConfig
	mailer  *Mailer
	sender  func() (emailSender, error)
	metrics *EmailMetrics
}

var _ types.EmailService = (*EmailService)(nil)

func NewEmailService(cfg *config.EmailConfig, mailer *Mailer) *EmailService {
	return NewEmailServiceWithRegistry(cfg, mailer, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, mailer *Mailer, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service",
		"from", cfg.FromAddress, "admin", logger.MaskEmail(cfg.AdminAddress))

	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contact_api_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_api_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_api_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	s := &EmailService{
		config:  cfg,
		mailer:  mailer,
		metrics: metrics,
	}
	s.sender = func() (emailSender, error) {
		client, err := mailer.Client()
		if err != nil {
			return nil, err
		}
		return client.Emails, nil
	}
	return s
}

// inquiryEmailData is the template context for both messages. It is rendered
// through html/template so all user-supplied fields are escaped in the HTML
// bodies.
type inquiryEmailData struct {
	Name         string
	Email        string
	CategoryName string
	Message      string
	Timestamp    string
}

// SendInquiryEmails sends the submitter confirmation and the admin alert.
// Each send is attempted independently; a failure in one does not prevent
// the other. The returned error reports overall failure (logical AND of
// both sends) and is only ever logged by the caller.
func (s *EmailService) SendInquiryEmails(ctx context.Context, inquiry types.InquiryCreate) error {
	sender, err := s.sender()
	if err != nil {
		s.metrics.errorCount.Inc()
		logger.GetLogger().Errorw("Failed to obtain email client", "error", err)
		return fmt.Errorf("email client unavailable: %w", err)
	}

	data := inquiryEmailData{
		Name:         inquiry.Name,
		Email:        inquiry.Email,
		CategoryName: CategoryDisplayName(inquiry.Category),
		Message:      inquiry.Message,
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
	}

	userOK := s.sendUserConfirmation(ctx, sender, data)
	adminOK := s.sendAdminNotification(ctx, sender, data)

	if !userOK || !adminOK {
		return fmt.Errorf("inquiry email dispatch incomplete: user=%t admin=%t", userOK, adminOK)
	}
	return nil
}

// sendUserConfirmation sends the confirmation email to the submitter.
func (s *EmailService) sendUserConfirmation(ctx context.Context, sender emailSender, data inquiryEmailData) bool {
	html, err := renderTemplate(userEmailTemplate, data)
	if err != nil {
		s.metrics.errorCount.Inc()
		logger.GetLogger().Errorw("Failed to render user confirmation email", "error", err)
		return false
	}

	text := fmt.Sprintf(`%s 様

お問い合わせありがとうございます。

▼お問い合わせ内容
種別: %s
メールアドレス: %s

%s

このメールは自動送信です。`, data.Name, data.CategoryName, data.Email, data.Message)

	return s.send(ctx, sender, "user", &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{data.Email},
		Subject: "【Gizmodo Japan LINE Bot】お問い合わせを受け付けました",
		Html:    html,
		Text:    text,
	})
}

// sendAdminNotification sends the alert email to the admin address, with
// Reply-To set to the submitter so replies route directly back.
func (s *EmailService) sendAdminNotification(ctx context.Context, sender emailSender, data inquiryEmailData) bool {
	html, err := renderTemplate(adminEmailTemplate, data)
	if err != nil {
		s.metrics.errorCount.Inc()
		logger.GetLogger().Errorw("Failed to render admin notification email", "error", err)
		return false
	}

	text := fmt.Sprintf(`新しいお問い合わせがありました。

名前: %s
メール: %s
種別: %s
送信日時: %s

▼内容
%s

※このメールに返信するとユーザーに届きます。`, data.Name, data.Email, data.CategoryName, data.Timestamp, data.Message)

	return s.send(ctx, sender, "admin", &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{s.config.AdminAddress},
		ReplyTo: data.Email,
		Subject: fmt.Sprintf("【LINE Bot お問い合わせ】%s さんから新規問い合わせ", data.Name),
		Html:    html,
		Text:    text,
	})
}

// send delivers one message, converting any transport error into a logged
// failure. Errors never propagate to the caller.
func (s *EmailService) send(ctx context.Context, sender emailSender, recipient string, params *resend.SendEmailRequest) bool {
	log := logger.GetLogger()
	start := time.Now()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(start).Seconds())
	}()

	if _, err := sender.SendWithContext(ctx, params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send inquiry email",
			"recipient", recipient,
			"to", logger.MaskEmail(params.To[0]),
			"error", err)
		return false
	}

	s.metrics.sentCount.Inc()
	log.Infow("Inquiry email sent",
		"recipient", recipient,
		"to", logger.MaskEmail(params.To[0]))
	return true
}

func renderTemplate(tmpl *template.Template, data inquiryEmailData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Template constants. Parsed once; user-supplied fields pass through
// html/template's contextual escaping.
var userEmailTemplate = template.Must(template.New("user").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background-color: #f5f5f5; padding: 20px;">
    <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
        <h1 style="color: #333; margin-bottom: 20px; font-size: 24px;">お問い合わせを受け付けました</h1>
        <p style="color: #666; line-height: 1.6;">{{.Name}} 様</p>
        <p style="color: #666; line-height: 1.6;">
            お問い合わせありがとうございます。<br>
            以下の内容で受け付けました。<br>
            確認後、担当者よりご連絡いたします。
        </p>
        <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 25px 0; border-left: 4px solid #00B900;">
            <p style="margin: 8px 0; color: #333;"><strong>種別:</strong> {{.CategoryName}}</p>
            <p style="margin: 8px 0; color: #333;"><strong>メールアドレス:</strong> {{.Email}}</p>
            <p style="margin: 8px 0; color: #333;"><strong>内容:</strong></p>
            <div style="background-color: #ffffff; padding: 15px; border-radius: 4px; margin-top: 10px;">
                <pre style="white-space: pre-wrap; font-family: inherit; color: #333; margin: 0;">{{.Message}}</pre>
            </div>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
        <p style="color: #999; font-size: 12px; line-height: 1.5;">
            このメールは自動送信です。<br>
            心当たりがない場合は、このメールは破棄してください。
        </p>
    </div>
</body>
</html>`))

var adminEmailTemplate = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background-color: #f5f5f5; padding: 20px;">
    <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
        <h1 style="color: #333; margin-bottom: 20px; font-size: 24px;">新しいお問い合わせ</h1>
        <div style="background-color: #e3f2fd; padding: 20px; border-left: 4px solid #2196f3; border-radius: 4px; margin: 20px 0;">
            <p style="margin: 8px 0; color: #333;"><strong>名前:</strong> {{.Name}}</p>
            <p style="margin: 8px 0; color: #333;"><strong>メール:</strong> <a href="mailto:{{.Email}}" style="color: #2196f3;">{{.Email}}</a></p>
            <p style="margin: 8px 0; color: #333;"><strong>種別:</strong> {{.CategoryName}}</p>
            <p style="margin: 8px 0; color: #333;"><strong>送信日時:</strong> {{.Timestamp}}</p>
        </div>
        <p style="color: #333; font-weight: bold; margin-top: 25px;">内容:</p>
        <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin-top: 10px;">
            <pre style="white-space: pre-wrap; font-family: inherit; color: #333; margin: 0;">{{.Message}}</pre>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
        <p style="color: #666; font-size: 14px; line-height: 1.5;">
            このメールに返信すると、ユーザー ({{.Email}}) に直接届きます。
        </p>
    </div>
</body>
</html>`))
