package notify

import (
	"context"
	"fmt"

	awsclient "activity-signups/internal/common/aws"
	"activity-signups/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// TopicPublisher broadcasts each event to an SNS topic.
type TopicPublisher struct {
	client   awsclient.SNSService
	topicARN string
}

func NewTopicPublisher(client awsclient.SNSService, topicARN string) *TopicPublisher {
	return &TopicPublisher{client: client, topicARN: topicARN}
}

func (t *TopicPublisher) Name() string { return "sns" }

func (t *TopicPublisher) Notify(ctx context.Context, event models.RosterEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(t.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Type)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
