// Package storage adapts the AWS S3 multipart protocol to the session
// transport port.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/keshan-spec/drivelife-app-core/upload/session"
)

// Params configure the S3 client.
type Params struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Client implements session.Transport on top of the AWS SDK.
type Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	logger   log.Logger
}

// NewClient loads AWS credentials and builds the transport.
func NewClient(ctx context.Context, params Params, logger log.Logger) (*Client, error) {
	cfg, err := loadAWSCredentials(ctx, params.Region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	client := s3.NewFromConfig(*cfg)
	return &Client{
		client:   client,
		uploader: manager.NewUploader(client),
		logger:   logger,
	}, nil
}

// Initiate opens a multipart upload and returns the upload id.
func (c *Client) Initiate(ctx context.Context, bucket, key, contentType string) (string, error) {
	out, err := c.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("create multipart upload: %w", describeAPIError(err))
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return "", fmt.Errorf("create multipart upload: empty upload id in response")
	}
	return *out.UploadId, nil
}

// UploadPart sends one numbered part and returns its ETag.
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body []byte) (string, error) {
	out, err := c.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("upload part %d: %w", partNumber, describeAPIError(err))
	}
	if out.ETag == nil || *out.ETag == "" {
		return "", fmt.Errorf("upload part %d: no ETag in response", partNumber)
	}
	return strings.Trim(*out.ETag, `"`), nil
}

// Complete assembles the parts into the final object.
func (c *Client) Complete(ctx context.Context, bucket, key, uploadID string, parts []session.CompletedPart) (session.Object, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(part.Number),
			ETag:       aws.String(part.ETag),
		})
	}

	out, err := c.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return session.Object{}, fmt.Errorf("complete multipart upload: %w", describeAPIError(err))
	}

	return session.Object{
		URL: aws.ToString(out.Location),
		Key: aws.ToString(out.Key),
	}, nil
}

// Abort discards the multipart upload and its stored parts.
func (c *Client) Abort(ctx context.Context, bucket, key, uploadID string) error {
	_, err := c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload: %w", describeAPIError(err))
	}
	return nil
}

// Put uploads a whole object in one request, for files no larger than a
// single chunk stride.
func (c *Client) Put(ctx context.Context, bucket, key, contentType string, body []byte) (session.Object, error) {
	out, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return session.Object{}, fmt.Errorf("put object: %w", describeAPIError(err))
	}

	return session.Object{
		URL: out.Location,
		Key: key,
	}, nil
}

func loadAWSCredentials(
	ctx context.Context,
	region string,
	accessKeyID string,
	secretKey string,
	logger log.Logger,
) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}

// describeAPIError keeps the service error code visible after wrapping so
// logs show why S3 rejected a call.
func describeAPIError(err error) error {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		return fmt.Errorf("%s: %w", apiError.ErrorCode(), err)
	}
	return err
}
