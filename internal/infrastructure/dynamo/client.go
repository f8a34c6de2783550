package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-docverify/internal/config"
)

// NewClient builds the client for the session table. Static keys are used
// when configured; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for session table: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, clientOptions(cfg)...), nil
}

func loadOptions(cfg *config.Config) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	return opts
}

// clientOptions points the client at AWS_ENDPOINT_URL (LocalStack, DynamoDB Local).
func clientOptions(cfg *config.Config) []func(*dynamodb.Options) {
	if cfg.AWSEndpointURL == "" {
		return nil
	}
	return []func(*dynamodb.Options){func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
	}}
}
