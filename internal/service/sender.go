package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, plainText, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SendGridMailer delivers email through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *zerolog.Logger
}

func NewSendGridMailer(apiKey, fromEmail, fromName string, logger *zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger,
	}
}

func (m *SendGridMailer) SendEmail(ctx context.Context, toEmail, toName, subject, plainText, html string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toEmail, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	m.logger.Debug().Str("to", toEmail).Str("subject", subject).Int("status", resp.StatusCode).Msg("email sent")
	return nil
}

// TwilioSMS sends text messages from a fixed Twilio number.
type TwilioSMS struct {
	client *twilio.RestClient
	from   string
	logger *zerolog.Logger
}

func NewTwilioSMS(accountSID, authToken, from string, logger *zerolog.Logger) *TwilioSMS {
	return &TwilioSMS{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   accountSID,
			Password:   authToken,
			AccountSid: accountSID,
		}),
		from:   from,
		logger: logger,
	}
}

func (t *TwilioSMS) SendSMS(_ context.Context, to, body string) error {
	if !strings.HasPrefix(to, "+") {
		t.logger.Warn().Str("to", to).Msg("destination number is not E.164, twilio may reject it")
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	if resp != nil && resp.Sid != nil {
		t.logger.Debug().Str("to", to).Str("sid", *resp.Sid).Msg("sms sent")
	}
	return nil
}

// LogSender stands in for an unconfigured provider and only logs.
type LogSender struct {
	logger *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendEmail(_ context.Context, toEmail, _, subject, _, _ string) error {
	l.logger.Info().Str("to", toEmail).Str("subject", subject).Msg("email provider not configured, skipping")
	return nil
}

func (l *LogSender) SendSMS(_ context.Context, to, _ string) error {
	l.logger.Info().Str("to", to).Msg("sms provider not configured, skipping")
	return nil
}
