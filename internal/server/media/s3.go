// Package media stores account images in S3-compatible object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/dmitrijs2005/tubekeeper/internal/server/config"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

var ErrNoFile = errors.New("no local file to upload")

// Kind is the top-level key prefix of an object.
type Kind string

const (
	KindAvatar     Kind = "avatars"
	KindCoverImage Kind = "covers"
)

// Storage uploads staged local files and deletes stored objects.
type Storage interface {
	// Upload stores the file at localPath and removes the local copy
	// whatever the outcome.
	Upload(ctx context.Context, localPath string, kind Kind) (*models.Media, error)
	Delete(ctx context.Context, objectID string) error
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Storage builds a client for the configured endpoint. Path-style
// addressing is used so MinIO works without wildcard DNS.
func NewS3Storage(ctx context.Context, c *sc.Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:    client,
		bucket:    c.S3Bucket,
		publicURL: strings.TrimRight(c.S3BaseEndpoint, "/") + "/" + c.S3Bucket,
		now:       time.Now,
	}, nil
}

func (s *S3Storage) storageKey(kind Kind, ext string) string {
	d := s.now()
	return fmt.Sprintf("%s/%d/%d/%d/%v%s", kind, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Storage) Upload(ctx context.Context, localPath string, kind Kind) (*models.Media, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	defer os.Remove(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := s.storageKey(kind, ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &models.Media{ObjectID: key, URL: s.publicURL + "/" + key}, nil
}

func (s *S3Storage) Delete(ctx context.Context, objectID string) error {
	if objectID == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
