package notify

import (
	"context"
	"fmt"

	awsclient "activity-signups/internal/common/aws"
	"activity-signups/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailConfirmer mails the participant a short confirmation via SES.
type EmailConfirmer struct {
	client    awsclient.SESService
	fromEmail string
}

func NewEmailConfirmer(client awsclient.SESService, fromEmail string) *EmailConfirmer {
	return &EmailConfirmer{client: client, fromEmail: fromEmail}
}

func (e *EmailConfirmer) Name() string { return "email" }

func (e *EmailConfirmer) Notify(ctx context.Context, event models.RosterEvent) error {
	subject, body := confirmationText(event)

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(e.fromEmail),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

func confirmationText(event models.RosterEvent) (subject, body string) {
	switch event.Type {
	case models.RosterEventUnregistered:
		return fmt.Sprintf("Unregistered from %s", event.Activity),
			fmt.Sprintf("You have been removed from %s. You can sign up again at any time.", event.Activity)
	default:
		return fmt.Sprintf("Signed up for %s", event.Activity),
			fmt.Sprintf("You are now signed up for %s. See you there!", event.Activity)
	}
}
