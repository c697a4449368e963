package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

const numS3UploadRetries = 3

// S3Options ...
type S3Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// uploadToS3 handles s3:// destinations, which some deployments hand back
// instead of a pre-signed HTTPS URL. The SDK's multipart transfer retries
// within this path; progress is reported only as the terminal 100 because the
// transfer manager exposes no byte counters.
func uploadToS3(ctx context.Context, params Params, onProgress ProgressFunc, logger log.Logger) error {
	bucket, key, err := parseS3URL(params.DestinationURL)
	if err != nil {
		return &Error{Cause: err}
	}

	cfg, err := loadAWSCredentials(ctx, params.S3, logger)
	if err != nil {
		return &Error{Cause: fmt.Errorf("load aws credentials: %w", err)}
	}
	client := s3.NewFromConfig(*cfg)

	err = retry.Times(numS3UploadRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		file, err := os.Open(params.Path)
		if err != nil {
			return fmt.Errorf("open file: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		var partMB int64 = 10
		uploader := manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partMB * 1024 * 1024
		})

		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:          file,
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			ContentType:   aws.String(params.ContentType),
			ContentLength: aws.Int64(params.Size),
		})
		if err != nil {
			// Client faults (bad bucket, denied access) won't heal on retry.
			var apiErr smithy.APIError
			abort := errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient
			return fmt.Errorf("put object: %w", err), abort
		}
		return nil, true
	})
	if err != nil {
		return &Error{Cause: err}
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func parseS3URL(raw string) (bucket, key string, err error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse destination URL: %w", err)
	}
	bucket = parsed.Host
	key = strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 destination: %s", raw)
	}
	return bucket, key, nil
}

func loadAWSCredentials(ctx context.Context, opts S3Options, logger log.Logger) (*aws.Config, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	} else {
		logger.Debugf("aws credentials not defined, loading credentials from environment...")
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
