package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
)

// S3Config configures an S3 backend. Endpoint is set for MinIO and other
// S3-compatible services; empty uses AWS.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Region    string
}

// s3API is the subset of *s3.Client the backend uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Backend presents a bucket prefix as a directory tree. Keys are split on
// "/": common prefixes become directories and objects become files.
type S3Backend struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 creates an S3 backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
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
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logging.Info("s3 storage configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix),
		zap.String("endpoint", cfg.Endpoint))
	return newS3Backend(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Backend(client s3API, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (b *S3Backend) Type() string { return "s3" }

func (b *S3Backend) Close() error { return nil }

// List implements Backend.
func (b *S3Backend) List(ctx context.Context, p string) (*protocol.FileInfo, error) {
	start := time.Now()
	fi, err := b.list(ctx, p)
	metrics.RecordStorageOperation(b.Type(), "list", time.Since(start), err == nil || errors.Is(err, ErrNotFound))
	return fi, err
}

func (b *S3Backend) list(ctx context.Context, p string) (*protocol.FileInfo, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	key := b.key(clean)

	dirPrefix := ""
	if key != "" {
		dirPrefix = key + "/"
	}

	fi := &protocol.FileInfo{
		Name:     dirName(clean, b.bucket),
		Type:     models.KindDirectory,
		Contents: []models.DirectoryEntry{},
	}
	found := false

	pager := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(dirPrefix),
		Delimiter: aws.String("/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", b.bucket, dirPrefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), dirPrefix), "/")
			if name == "" {
				continue
			}
			found = true
			fi.Contents = append(fi.Contents, models.DirectoryEntry{Name: name, Kind: models.KindDirectory})
		}
		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), dirPrefix)
			if name == "" {
				// directory marker object
				continue
			}
			fi.Contents = append(fi.Contents, models.DirectoryEntry{
				Name: name,
				Kind: models.KindFile,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	if found || clean == "" {
		return fi, nil
	}
	return b.stat(ctx, key, clean)
}

// stat describes a single object, or ErrNotFound.
func (b *S3Backend) stat(ctx context.Context, key, clean string) (*protocol.FileInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("head s3://%s/%s: %w", b.bucket, key, err)
	}
	return &protocol.FileInfo{
		Name: path.Base(clean),
		Type: models.KindFile,
		Size: aws.ToInt64(out.ContentLength),
	}, nil
}

func (b *S3Backend) key(clean string) string {
	switch {
	case b.prefix == "":
		return clean
	case clean == "":
		return b.prefix
	default:
		return b.prefix + "/" + clean
	}
}

func dirName(clean, bucket string) string {
	if clean == "" {
		return bucket
	}
	return path.Base(clean)
}
