package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/xerrors"
)

type s3Storage struct {
	client *s3.Client
	config S3Config
}

type S3Config struct {
	Bucket string
	// EndpointURL overrides the S3 endpoint, e.g. for MinIO. Falls back to S3_ENDPOINT_URL.
	EndpointURL string
}

func NewS3Storage(ctx context.Context, s S3Config) (Storage, error) {
	if s.Bucket == "" {
		return nil, xerrors.New("S3 bucket is not configured")
	}
	if s.EndpointURL == "" {
		s.EndpointURL = os.Getenv("S3_ENDPOINT_URL")
	}

	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(c, func(o *s3.Options) {
		o.UsePathStyle = true
		if s.EndpointURL != "" {
			o.BaseEndpoint = aws.String(s.EndpointURL)
		}
	})

	return &s3Storage{
		client: client,
		config: s,
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	}); err != nil {
		return "", xerrors.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return s.location(key), nil
}

func (s *s3Storage) Get(ctx context.Context, location string) ([]byte, error) {
	key, ok := strings.CutPrefix(location, s.location(""))
	if !ok {
		return nil, xerrors.Errorf("%s is not in bucket %s", location, s.config.Bucket)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, xerrors.Errorf("failed to read S3 object %s: %w", key, err)
	}

	return data, nil
}

func (s *s3Storage) location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key)
}
