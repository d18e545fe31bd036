// Package archive uploads the output directory of a harness invocation
// (history files and profile reports) to S3-compatible storage.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/config"
	"github.com/mslinn/perftest/pkg/mode"
)

// Uploader copies local files into one bucket under a key prefix
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New connects to the configured endpoint. An endpoint may carry an http://
// or https:// scheme; without one, TLS is used unless Insecure is set.
func New(cfg config.Archive, logger *zap.Logger) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive endpoint and bucket are required")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.Insecure)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		// a fixed region skips the bucket location lookup
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}

	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

func splitEndpoint(endpoint string, insecure bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	}
	return endpoint, !insecure
}

// Key returns the object key of a file relative to the uploaded directory
func (u *Uploader) Key(runID, rel string) string {
	return path.Join(u.prefix, runID, filepath.ToSlash(rel))
}

// UploadDir uploads every regular file under dir and returns the keys written
func (u *Uploader) UploadDir(ctx context.Context, dir, runID string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	var keys []string
	for _, p := range files {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return keys, err
		}
		key := u.Key(runID, rel)

		info, err := u.client.FPutObject(ctx, u.bucket, key, p, minio.PutObjectOptions{ContentType: ContentType(p)})
		if err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", p, err)
		}
		u.logger.Debug("uploaded", zap.String("file", p), zap.String("key", key), zap.Int64("size", info.Size))
		keys = append(keys, key)
	}

	return keys, nil
}

// ContentType picks the MIME type of an output file
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".html":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}

// Sink uploads the output directory once every case has been reported
type Sink struct {
	uploader *Uploader
	dir      string
	runID    string
	ctx      context.Context
}

// NewSink uploads dir under runID when closed
func NewSink(ctx context.Context, u *Uploader, dir, runID string) *Sink {
	return &Sink{uploader: u, dir: dir, runID: runID, ctx: ctx}
}

func (s *Sink) Name() string { return "archive" }

func (s *Sink) Report(ctx context.Context, b *mode.Bundle) error { return nil }

func (s *Sink) Close() error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil
	}
	keys, err := s.uploader.UploadDir(s.ctx, s.dir, s.runID)
	if err != nil {
		return err
	}
	s.uploader.logger.Info("archived output directory",
		zap.String("bucket", s.uploader.bucket), zap.String("run", s.runID), zap.Int("objects", len(keys)))
	return nil
}
