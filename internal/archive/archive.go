// Package archive uploads research results to S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/model"
)

// Uploader is the subset of manager.Uploader used by the archiver.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes each result as a JSON object keyed by date and run ID.
type S3Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// New builds an archiver from config. Endpoint and ForcePathStyle support
// S3-compatible providers such as MinIO or R2.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("archive: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "archive: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normalizeEndpoint(cfg.Endpoint))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix), nil
}

// NewWithUploader creates an archiver around an existing uploader.
func NewWithUploader(u Uploader, bucket, prefix string) *S3Archiver {
	return &S3Archiver{uploader: u, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a result: <prefix>/YYYY/MM/DD/<run_id>.json.
func (a *S3Archiver) Key(res *model.ResearchResult) string {
	ts := res.Timestamp.UTC()
	return path.Join(a.prefix, ts.Format("2006/01/02"), res.RunID+".json")
}

// Archive uploads res and returns its object key.
func (a *S3Archiver) Archive(ctx context.Context, res *model.ResearchResult) (string, error) {
	if res == nil || res.RunID == "" {
		return "", eris.New("archive: result has no run id")
	}
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "archive: marshal result")
	}

	key := a.Key(res)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", eris.Wrapf(err, "archive: upload %s", key)
	}

	zap.L().Info("archived research result",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return key, nil
}

// normalizeEndpoint adds https:// to an endpoint given without a scheme.
func normalizeEndpoint(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}
