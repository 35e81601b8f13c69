package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-preprint/pkg/preprint"
	"github.com/tendant/simple-preprint/pkg/preprint/objectkey"
)

// ContentType is set on every uploaded object
const ContentType = "application/pdf"

// Server-side encryption algorithms accepted in Config.SSEAlgorithm
const (
	SSEAlgorithmAES256 = "AES256"
	SSEAlgorithmKMS    = "aws:kms"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region (default: us-east-1)
	Bucket          string // S3 bucket name
	AccessKeyID     string // Access key ID
	SecretAccessKey string // Secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PublicBaseURL   string // Optional base for locators, e.g. a CDN in front of the bucket

	// Server-side encryption, off when SSEAlgorithm is empty
	SSEAlgorithm string // SSEAlgorithmAES256 or SSEAlgorithmKMS
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms

	VerifyBucket bool // HeadBucket at construction and fail when it is not reachable
}

// Backend is an S3-compatible implementation of the preprint.BlobStore interface
type Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	config   Config
}

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.AccessKeyID == "" || config.SecretAccessKey == "" {
		return nil, errors.New("access key id and secret access key are required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	switch config.SSEAlgorithm {
	case "", SSEAlgorithmAES256, SSEAlgorithmKMS:
	default:
		return nil, fmt.Errorf("unsupported server-side encryption algorithm: %s", config.SSEAlgorithm)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
		// S3-compatible services often reject the newer default checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	backend := &Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   config.Bucket,
		config:   config,
	}

	if config.VerifyBucket {
		if _, err := client.HeadBucket(context.Background(), &s3.HeadBucketInput{
			Bucket: aws.String(config.Bucket),
		}); err != nil {
			return nil, fmt.Errorf("failed to access bucket %s: %w", config.Bucket, err)
		}
	}

	return backend, nil
}

func (b *Backend) Name() string {
	return "s3"
}

// Store uploads the reader under key and returns the object's public URL
func (b *Backend) Store(ctx context.Context, key string, reader io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(ContentType),
	}

	switch b.config.SSEAlgorithm {
	case SSEAlgorithmAES256:
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case SSEAlgorithmKMS:
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.config.SSEKMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(b.config.SSEKMSKeyID)
		}
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", fmt.Errorf("failed to upload to S3: %w", err))
	}

	return b.Locator(key), nil
}

// Locator returns the public URL under which key is reachable
func (b *Backend) Locator(key string) string {
	key = objectkey.EscapePath(key)
	if b.config.PublicBaseURL != "" {
		return strings.TrimRight(b.config.PublicBaseURL, "/") + "/" + key
	}

	if b.config.Endpoint != "" {
		endpoint := strings.TrimRight(b.config.Endpoint, "/")
		if !b.config.UsePathStyle {
			if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
				u.Host = b.bucket + "." + u.Host
				return strings.TrimRight(u.String(), "/") + "/" + key
			}
		}
		return endpoint + "/" + b.bucket + "/" + key
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.config.Region, key)
}

func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, preprint.NewStorageError(b.Name(), key, "open", preprint.ErrObjectNotFound)
		}
		return nil, preprint.NewStorageError(b.Name(), key, "open", fmt.Errorf("failed to download from S3: %w", err))
	}

	return result.Body, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
