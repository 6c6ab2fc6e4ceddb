package archive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/docker/go-units"
	"github.com/ethpandaops/robotdb/pkg/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultRegion = "us-east-1"
	preflightKey  = ".robotdb-write-test"
	fallbackMIME  = "application/octet-stream"
)

type s3Archiver struct {
	log    logrus.FieldLogger
	cfg    *config.S3ArchiveConfig
	client *s3.Client
}

var _ Archiver = (*s3Archiver)(nil)

// NewS3Archiver creates an Archiver for S3-compatible storage.
func NewS3Archiver(
	log logrus.FieldLogger,
	cfg *config.S3ArchiveConfig,
) Archiver {
	return &s3Archiver{
		log:    log.WithField("component", "s3-archiver"),
		cfg:    cfg,
		client: newS3Client(cfg),
	}
}

func newS3Client(cfg *config.S3ArchiveConfig) *s3.Client {
	return s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = defaultRegion
		if cfg.Region != "" {
			o.Region = cfg.Region
		}

		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}

		o.UsePathStyle = cfg.ForcePathStyle

		// Only send checksums when the operation requires them.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired

		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}
	})
}

// Preflight writes a small marker object to fail fast on misconfiguration.
func (a *s3Archiver) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("robotdb write test: %s", time.Now().UTC().Format(time.RFC3339))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(a.objectKey(preflightKey)),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", a.cfg.Bucket, err)
	}

	return nil
}

// Archive uploads a report to <prefix>/<run id>/<basename>.
func (a *s3Archiver) Archive(ctx context.Context, path string, runID uint) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening report: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}

	key := a.resolveKey(runID, filepath.Base(path))

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(detectContentType(path)),
		Metadata: map[string]string{
			"run-id": strconv.FormatUint(uint64(runID), 10),
		},
	}

	if a.cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(a.cfg.StorageClass)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", path, a.cfg.Bucket, key, err)
	}

	a.log.WithFields(logrus.Fields{
		"bucket": a.cfg.Bucket,
		"key":    key,
		"size":   units.HumanSize(float64(info.Size())),
	}).Info("Report archived")

	return key, nil
}

// resolveKey builds the object key of a report belonging to a run.
func (a *s3Archiver) resolveKey(runID uint, baseName string) string {
	return a.objectKey(strconv.FormatUint(uint64(runID), 10) + "/" + baseName)
}

func (a *s3Archiver) objectKey(name string) string {
	prefix := strings.Trim(a.cfg.Prefix, "/")
	if prefix == "" {
		prefix = config.DefaultArchivePrefix
	}

	return prefix + "/" + name
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return fallbackMIME
	}

	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return fallbackMIME
	}

	return ct
}
