package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// EmailService delivers account mail through Resend. In development mode it
// logs the link instead of sending, so local flows work without an API key.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	appURL    string
	appName   string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appURL:    appURL,
		appName:   appName,
		isDev:     isDev,
	}
}

// SendActivationEmail mails the account verification link. The raw token is
// embedded in the URL; only its digest exists server side.
func (s *EmailService) SendActivationEmail(email, name, token string) error {
	activateURL := fmt.Sprintf("%s/activate/%s?email=%s", s.appURL, token, url.QueryEscape(email))
	subject, body := activationEmailTemplate(name, activateURL, s.appName)
	return s.send("activation", email, subject, body, activateURL)
}

// SendPasswordResetEmail mails the password reset link.
func (s *EmailService) SendPasswordResetEmail(email, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password/%s?email=%s", s.appURL, token, url.QueryEscape(email))
	subject, body := passwordResetEmailTemplate(name, resetURL, s.appName)
	return s.send("password_reset", email, subject, body, resetURL)
}

func (s *EmailService) send(kind, email, subject, body, link string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", email, "subject", subject, "url", link)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", email)
	}
	return err
}
