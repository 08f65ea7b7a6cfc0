package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

const presignedURLExpiration = 15 * time.Minute

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type ObjectStorage interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// R2Storage is an S3-compatible bucket on Cloudflare R2.
type R2Storage struct {
	Bucket        string
	client        *s3.Client
	presignClient *s3.PresignClient
}

func NewR2Storage(ctx context.Context, accountID, accessKeyID, accessKeySecret, bucket string) (*R2Storage, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
		}, nil
	})
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &R2Storage{
		Bucket:        bucket,
		client:        client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

func (r *R2Storage) PutObject(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	return err
}

func (r *R2Storage) PresignGet(ctx context.Context, key string) (string, error) {
	request, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignedURLExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %w", err)
	}
	return request.URL, nil
}

// MirrorImage copies a provider image into the bucket under keyPrefix and returns the object key.
func MirrorImage(ctx context.Context, storage ObjectStorage, sourceURL, keyPrefix string) (string, error) {
	content, err := ReadFileFromUrl(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	mimeType := http.DetectContentType(content)
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return "", fmt.Errorf("unsupported image type: %s", mimeType)
	}
	key := keyPrefix + ext
	if err := storage.PutObject(ctx, key, content, mimeType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	logrus.WithFields(logrus.Fields{"key": key, "bytes": len(content)}).Debug("image mirrored")
	return key, nil
}
