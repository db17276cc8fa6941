package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	SendFriendWelcome(ctx context.Context, email, name string, dailyLimit int) error
}

// SESClient is the subset of the SES API used for sending
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESClient
	fromAddress string
	siteURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, siteURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, siteURL, logger), nil
}

// NewEmailServiceWithClient wires an existing SES client
func NewEmailServiceWithClient(client SESClient, fromAddress, siteURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		siteURL:     siteURL,
		logger:      logger,
	}
}

// SendFriendWelcome tells a new allowlist member about their daily quota
func (s *AWSSESEmailService) SendFriendWelcome(ctx context.Context, email, name string, dailyLimit int) error {
	link := s.siteURL + "/teefeeme"
	safeName := html.EscapeString(name)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>You're on the TeeFeeMe-5000 friends list</h1>
        </div>
        <p>Hi %s,</p>
        <p>Sign in with this email address and you can turn up to <strong>%d</strong> photos into cartoons every day.</p>
        <p><a href="%s" class="button">Open TeeFeeMe-5000</a></p>
        <div class="footer">
            <p>This is an automated message from Inspire OKC. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, safeName, dailyLimit, link)

	textBody := fmt.Sprintf(`You're on the TeeFeeMe-5000 friends list

Hi %s,

Sign in with this email address and you can turn up to %d photos into cartoons every day.

%s

This is an automated message from Inspire OKC. Please do not reply to this email.
`, name, dailyLimit, link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("You're on the TeeFeeMe-5000 friends list"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send friend welcome email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("friend welcome email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// NoopEmailService logs instead of sending; used when SES is not configured
type NoopEmailService struct {
	Logger *slog.Logger
}

func (s *NoopEmailService) SendFriendWelcome(ctx context.Context, email, name string, dailyLimit int) error {
	s.Logger.Info("email disabled, skipping friend welcome",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
