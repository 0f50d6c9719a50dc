package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/backoffice/pkg/logger"
)

// SESClient is the part of the SES API used for sending
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESResetMailer sends password reset links using AWS SES
type SESResetMailer struct {
	client      SESClient
	fromAddress string
	logger      *slog.Logger
}

// NewSESResetMailer loads the default AWS credential chain for region
func NewSESResetMailer(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESResetMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESResetMailerWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

// NewSESResetMailerWithClient wraps an existing SES client
func NewSESResetMailerWithClient(client SESClient, fromAddress string, logger *slog.Logger) *SESResetMailer {
	return &SESResetMailer{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

const resetEmailHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h1>Reset your password</h1>
    <p>A password reset was requested for your back-office account.</p>
    <p><a href="%s">Choose a new password</a></p>
    <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
    <p>This link can be used once and expires at %s.</p>
    <p>If you did not request a reset, you can ignore this email. Your password will not change.</p>
</body>
</html>
`

const resetEmailText = `Reset your password

A password reset was requested for your back-office account.
Open this link to choose a new password:

%s

This link can be used once and expires at %s.

If you did not request a reset, you can ignore this email. Your password will not change.
`

// SendPasswordResetEmail sends the reset link to email
func (m *SESResetMailer) SendPasswordResetEmail(ctx context.Context, email, resetURL string, expiresAt time.Time) error {
	expires := expiresAt.UTC().Format(time.RFC1123)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(fmt.Sprintf(resetEmailHTML, resetURL, resetURL, expires)),
				},
				Text: &types.Content{
					Data: aws.String(fmt.Sprintf(resetEmailText, resetURL, expires)),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send reset email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("reset email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
