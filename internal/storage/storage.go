// Package storage provides S3-compatible object storage for user avatars.
// Uploads and downloads go through time-limited presigned URLs so image
// bytes never pass through the API service.
package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Service defines the interface for avatar storage operations.
type Service interface {
	// PresignAvatarUpload creates a presigned PUT URL for a new avatar object
	// and returns the URL together with the object key.
	PresignAvatarUpload(ctx context.Context, userID, contentType string, ttl time.Duration) (url, key string, err error)

	// PresignAvatarDownload creates a presigned GET URL for an existing object key.
	PresignAvatarDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// DeleteAvatar removes an avatar object.
	DeleteAvatar(ctx context.Context, key string) error
}

type s3Service struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New creates an S3-backed storage service from environment configuration.
// S3_ENDPOINT allows pointing at a MinIO instance in development.
func New(ctx context.Context) (Service, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if accessKey := os.Getenv("S3_ACCESS_KEY"); accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, os.Getenv("S3_SECRET_KEY"), "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Service{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

func (s *s3Service) PresignAvatarUpload(ctx context.Context, userID, contentType string, ttl time.Duration) (string, string, error) {
	key := fmt.Sprintf("avatars/%s/%s", userID, uuid.New().String())

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", "", fmt.Errorf("presign avatar upload: %w", err)
	}

	return req.URL, key, nil
}

func (s *s3Service) PresignAvatarDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign avatar download: %w", err)
	}
	return req.URL, nil
}

func (s *s3Service) DeleteAvatar(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	return nil
}
