package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/models"
)

// Archiver keeps a copy of completed report text
type Archiver interface {
	Store(ctx context.Context, key, body string) error
}

// S3Archiver uploads reports to a bucket
type S3Archiver struct {
	bucket   string
	uploader *s3manager.Uploader
}

// NewS3Archiver creates an archiver for cfg.Bucket
func NewS3Archiver(cfg *config.StorageConfig) (*S3Archiver, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &S3Archiver{
		bucket:   cfg.Bucket,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Store uploads body as a markdown object under key
func (a *S3Archiver) Store(ctx context.Context, key, body string) error {
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to s3: %w", err)
	}
	return nil
}

// storageKey places reports under <prefix><org>/<kind>/<id>.md
func storageKey(prefix string, r *models.Report) string {
	return prefix + path.Join(r.OrgID.String(), string(r.Kind), r.ID.String()+".md")
}
