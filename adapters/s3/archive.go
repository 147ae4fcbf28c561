// Package s3 archives completed submissions to an S3 bucket, as NDJSON or
// Parquet batches, for downstream analytics.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"github.com/formflow/formflow-go/runtime"
)

// Archive formats.
const (
	FormatNDJSON  = "ndjson"
	FormatParquet = "parquet"
)

// Config holds archiver configuration. Endpoint and ForcePathStyle support
// MinIO-style S3 compatibles in dev stacks.
type Config struct {
	Region         string `json:"region" yaml:"region"`
	Bucket         string `json:"bucket" yaml:"bucket"`
	Prefix         string `json:"prefix" yaml:"prefix"`
	Format         string `json:"format" yaml:"format"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool   `json:"force_path_style" yaml:"force_path_style"`
	AccessKey      string `json:"access_key" yaml:"access_key"`
	SecretKey      string `json:"secret_key" yaml:"secret_key"`
	SessionToken   string `json:"session_token" yaml:"session_token"`
}

// Archiver uploads batches of completed submissions.
type Archiver struct {
	config *Config
	client *s3.Client
}

// record is the flattened parquet row shape. Answers stay as one JSON
// column since their keys vary per form.
type record struct {
	ID        string `parquet:"id"`
	Form      string `parquet:"form"`
	Status    string `parquet:"status"`
	Data      string `parquet:"data,zstd"`
	CreatedAt string `parquet:"created_at"`
	UpdatedAt string `parquet:"updated_at"`
}

// NewArchiver builds the S3 client and validates the configuration.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatNDJSON
	case FormatNDJSON, FormatParquet:
	default:
		return nil, fmt.Errorf("unknown archive format %q", cfg.Format)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.UsePathStyle = cfg.ForcePathStyle
	})
	return &Archiver{config: cfg, client: client}, nil
}

// ArchiveCompleted uploads the completed submissions of one form as a
// single timestamped object and returns the object key. In-progress
// submissions are skipped; with nothing to archive the key is empty and no
// object is written.
func (a *Archiver) ArchiveCompleted(ctx context.Context, formSlug string, subs []*runtime.Submission) (string, error) {
	var completed []*runtime.Submission
	for _, sub := range subs {
		if sub.Status == runtime.StatusComplete {
			completed = append(completed, sub)
		}
	}
	if len(completed) == 0 {
		return "", nil
	}

	var body []byte
	var err error
	switch a.config.Format {
	case FormatParquet:
		body, err = encodeParquet(completed)
	default:
		body, err = encodeNDJSON(completed)
	}
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s/%s.%s",
		a.config.Prefix, formSlug,
		time.Now().UTC().Format("20060102T150405Z"),
		a.config.Format)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	log.Printf("archived %d submissions of form %s to s3://%s/%s", len(completed), formSlug, a.config.Bucket, key)
	return key, nil
}

func encodeNDJSON(subs []*runtime.Submission) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, sub := range subs {
		if err := enc.Encode(sub); err != nil {
			return nil, fmt.Errorf("failed to encode submission %s: %w", sub.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeParquet(subs []*runtime.Submission) ([]byte, error) {
	rows := make([]record, 0, len(subs))
	for _, sub := range subs {
		data, err := json.Marshal(sub.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode answers for %s: %w", sub.ID, err)
		}
		rows = append(rows, record{
			ID:        sub.ID,
			Form:      sub.Form,
			Status:    sub.Status,
			Data:      string(data),
			CreatedAt: sub.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: sub.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[record](&buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
