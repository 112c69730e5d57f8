package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/id"
)

// PutObjectAPI is the S3 call the outbox needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
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
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// Outbox drops rendered emails into a bucket as JSON documents; a separate
// relay picks them up and delivers them.
type Outbox struct {
	client PutObjectAPI
	bucket string
	now    func() time.Time
}

func NewOutbox(client PutObjectAPI, bucket string) *Outbox {
	return &Outbox{client: client, bucket: bucket, now: time.Now}
}

// Send writes e under outbox/YYYY/MM/DD/<ulid>.json.
func (o *Outbox) Send(ctx context.Context, e domain.Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	key := objectKey(o.now(), id.New())
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func objectKey(t time.Time, name string) string {
	return fmt.Sprintf("outbox/%s/%s.json", t.UTC().Format("2006/01/02"), name)
}
