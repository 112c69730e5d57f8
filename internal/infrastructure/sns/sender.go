package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
)

// Publisher is the SNS call the sender needs.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender hands emails to a provider through an SNS topic. Subscribers (an email
// relay Lambda, SES, ...) read the recipient and HTML body from message attributes.
type Sender struct {
	client   Publisher
	topicARN string
}

func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SNSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	return &Sender{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (s *Sender) Send(ctx context.Context, e domain.Email) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(e.Subject),
		Message:  aws.String(e.Text),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"to":   {DataType: aws.String("String"), StringValue: aws.String(e.To)},
			"from": {DataType: aws.String("String"), StringValue: aws.String(e.From)},
			"html": {DataType: aws.String("String"), StringValue: aws.String(e.HTML)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
