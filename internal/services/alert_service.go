package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AlertNotifier is notified when the guard bans an identity. Notification is
// best effort and sits outside the engine's fail-loud contract: a delivery
// failure is logged, never surfaced to the client.
type AlertNotifier interface {
	NotifyBan(identity, abuseContext string, failures, retryAfterSec int)
}

// NoopAlertNotifier discards alerts. Used when alerting is disabled.
type NoopAlertNotifier struct{}

func (NoopAlertNotifier) NotifyBan(identity, abuseContext string, failures, retryAfterSec int) {}

// SESAlertService emails the operator through AWS SES when a ban triggers.
type SESAlertService struct {
	sesClient   *ses.Client
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESAlertService creates a new AWS SES alert service
func NewSESAlertService(region, fromAddress, toAddress string, logger *slog.Logger) (*SESAlertService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// NotifyBan sends the alert asynchronously so the request path never waits
// on SES.
func (s *SESAlertService) NotifyBan(identity, abuseContext string, failures, retryAfterSec int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		subject := fmt.Sprintf("[podguard] ban triggered: %s (%s)", identity, abuseContext)
		body := fmt.Sprintf(
			"Identity %s was banned under context %s after %d failures in the window.\n"+
				"The ban lifts in %d seconds unless further failures extend it.\n\n"+
				"To lift it now: DELETE /api/admin/bans with the identity above.\n",
			identity, abuseContext, failures, retryAfterSec)

		input := &ses.SendEmailInput{
			Source: aws.String(s.fromAddress),
			Destination: &types.Destination{
				ToAddresses: []string{s.toAddress},
			},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		}

		if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
			s.logger.Error("failed to send ban alert email",
				slog.String("identity", identity),
				slog.String("context", abuseContext),
				slog.Any("error", err))
			return
		}

		s.logger.Info("ban alert email sent",
			slog.String("identity", identity),
			slog.String("context", abuseContext))
	}()
}
