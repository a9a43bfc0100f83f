package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email sent on signup.
type WelcomeEmailData struct {
	Email string
	Name  string
}

// EnrollmentConfirmedEmailData holds data for the enrollment confirmation email.
type EnrollmentConfirmedEmailData struct {
	Email      string
	Name       string
	EventTitle string
	EventDate  time.Time
	Venue      string
	Amount     decimal.Decimal
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeEmailData) error
	SendEnrollmentConfirmed(ctx context.Context, data *EnrollmentConfirmedEmailData) error
}
