package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-mailer/internal/config"
)

// DeliveryEvent describes one dispatched email. It never carries message content.
type DeliveryEvent struct {
	MessageID       string    `json:"message_id"`
	RecipientDomain string    `json:"recipient_domain"`
	Verified        bool      `json:"verified"`
	HasAttachment   bool      `json:"has_attachment"`
	SentAt          time.Time `json:"sent_at"`
}

// EventPublisher publishes delivery events to an SNS topic.
type EventPublisher interface {
	PublishDelivery(ctx context.Context, ev DeliveryEvent) error
}

// API is the subset of the SNS client the publisher needs.
type API interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   API
	topicARN string
}

// NewPublisher creates an SNS-backed publisher. When cfg.AWSEndpointURL is set
// (LocalStack), it overrides the endpoint.
func NewPublisher(ctx context.Context, cfg *config.Config) (EventPublisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN is not set")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return NewPublisherWithClient(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSTopicARN), nil
}

func NewPublisherWithClient(client API, topicARN string) EventPublisher {
	return &publisher{client: client, topicARN: topicARN}
}

func (p *publisher) PublishDelivery(ctx context.Context, ev DeliveryEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal delivery event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String("email.sent")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
