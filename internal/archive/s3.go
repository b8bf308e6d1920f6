// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive mirrors downloaded artifacts to an S3 bucket, one key
// prefix per run.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pdiddy/convertly/internal/filetype"
	"github.com/pdiddy/convertly/pkg/types"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads files under bucket/prefix/<run id>/.
type Archiver struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

// New builds an S3-backed archiver from cfg.
func New(ctx context.Context, cfg types.ArchiveConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket not configured")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithAPI builds an archiver over an existing client.
func NewWithAPI(api PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a file of a run.
func (a *Archiver) Key(runID, name string) string {
	return path.Join(a.prefix, runID, filepath.Base(name))
}

// Upload stores the file at localPath and returns its s3:// URI.
func (a *Archiver) Upload(ctx context.Context, runID, localPath string) (string, error) {
	src, err := filetype.Inspect(localPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", localPath, err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	key := a.Key(runID, src.Name)
	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(src.Size),
		ContentType:   aws.String(src.ContentType),
		Metadata:      map[string]string{"convertly-run": runID},
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", src.Name, a.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// UploadAll uploads every path (keyed by item id) and returns the URI per
// item id and the number of failures, which are reported on w.
func (a *Archiver) UploadAll(ctx context.Context, runID string, paths map[string]string, w io.Writer) (map[string]string, int) {
	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	uris := make(map[string]string, len(paths))
	seen := map[string]string{}
	failed := 0
	for _, id := range ids {
		p := paths[id]
		// Items of a combined run share one artifact.
		if uri, ok := seen[p]; ok {
			uris[id] = uri
			continue
		}
		uri, err := a.Upload(ctx, runID, p)
		if err != nil {
			fmt.Fprintf(w, "archive failed: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "archived: %s\n", uri)
		seen[p] = uri
		uris[id] = uri
	}
	return uris, failed
}
