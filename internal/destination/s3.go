package destination

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/logger"
	"github.com/photobackup/engine/internal/ports"
)

var s3log = logger.Named("destination.s3")

// s3Backend implements ports.DestinationBackend against an S3-compatible
// object store, including the explicit multipart control flow the
// object-store protocol requires above the configured threshold.
type s3Backend struct {
	cfg    S3Config
	mp     Multipart
	client *s3.Client
}

func newS3Backend(cfg S3Config, mp Multipart) *s3Backend {
	return &s3Backend{cfg: cfg, mp: mp}
}

func (b *s3Backend) Connect(ctx context.Context) error {
	if b.cfg.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", errs.ErrInvalidConfig)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(b.cfg.Region)}
	if b.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.cfg.AccessKeyID, b.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	b.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if b.cfg.Endpoint != "" {
			o.BaseEndpoint = &b.cfg.Endpoint
		}
		o.UsePathStyle = b.cfg.ForcePathStyle
	})
	return nil
}

func (b *s3Backend) Disconnect(ctx context.Context) error {
	b.client = nil
	return nil
}

func (b *s3Backend) TestConnection(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("%w: not connected", errs.ErrConnectionFailed)
	}
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &b.cfg.Bucket})
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *s3Backend) key(remotePath string) string {
	return path.Join(b.cfg.Prefix, remotePath)
}

func (b *s3Backend) Upload(ctx context.Context, localFile, remotePath string, progress ports.ProgressFunc) (domain.UploadResult, error) {
	start := time.Now()

	info, err := os.Stat(localFile)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrFileNotFound, err)
	}

	var checksum string
	if info.Size() < b.mp.ThresholdBytes {
		checksum, err = b.uploadSingle(ctx, localFile, remotePath, info.Size(), progress)
	} else {
		checksum, err = b.uploadMultipart(ctx, localFile, remotePath, info.Size(), progress)
	}
	if err != nil {
		return domain.UploadResult{}, err
	}
	if progress != nil {
		progress(1.0)
	}

	return domain.UploadResult{
		RemotePath: remotePath,
		Checksum:   checksum,
		Size:       info.Size(),
		Duration:   time.Since(start),
	}, nil
}

func (b *s3Backend) uploadSingle(ctx context.Context, localFile, remotePath string, size int64, progress ports.ProgressFunc) (string, error) {
	f, err := os.Open(localFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrFileNotFound, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	_, checksum, err := copyWithChecksum(&progressWriter{w: &buf, total: size, progress: progress}, f)
	if err != nil {
		return "", err
	}

	key := b.key(remotePath)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.cfg.Bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}
	return checksum, nil
}

type completedPart struct {
	number int32
	etag   string
}

func (b *s3Backend) uploadMultipart(ctx context.Context, localFile, remotePath string, size int64, progress ports.ProgressFunc) (string, error) {
	f, err := os.Open(localFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrFileNotFound, err)
	}
	defer f.Close()

	key := b.key(remotePath)
	created, err := b.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: &b.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}
	uploadID := created.UploadId

	abort := func() {
		_, abortErr := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket: &b.cfg.Bucket, Key: &key, UploadId: uploadID,
		})
		if abortErr != nil {
			s3log.Warn("abort multipart upload failed", zap.String("key", key), zap.Error(abortErr))
		}
	}

	h := sha256.New()
	var parts []completedPart
	var uploaded int64
	buf := make([]byte, b.mp.PartSizeBytes)

	for partNumber := int32(1); ; partNumber++ {
		n, readErr := io.ReadFull(f, buf)
		if n == 0 {
			break
		}

		partNum := partNumber
		chunk := append([]byte(nil), buf[:n]...)
		h.Write(chunk)
		var etag string

		retryErr := withRetry(ctx, b.mp.MaxRetries, time.Second, func() error {
			out, uploadErr := b.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     &b.cfg.Bucket,
				Key:        &key,
				UploadId:   uploadID,
				PartNumber: &partNum,
				Body:       bytes.NewReader(chunk),
			})
			if uploadErr != nil {
				return uploadErr
			}
			if out.ETag != nil {
				etag = *out.ETag
			}
			return nil
		})
		if retryErr != nil {
			abort()
			return "", fmt.Errorf("%w: part %d: %w", errs.ErrUploadFailed, partNumber, retryErr)
		}

		parts = append(parts, completedPart{number: partNumber, etag: etag})
		uploaded += int64(n)
		if progress != nil {
			progress(float64(uploaded) / float64(size))
		}

		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			break
		}
		if readErr != nil {
			abort()
			return "", fmt.Errorf("%w: %w", errs.ErrUploadFailed, readErr)
		}
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].number < parts[j].number })
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		num := p.number
		completed[i] = types.CompletedPart{ETag: &p.etag, PartNumber: &num}
	}

	_, err = b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          &b.cfg.Bucket,
		Key:             &key,
		UploadId:        uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		abort()
		return "", fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (b *s3Backend) Exists(ctx context.Context, remotePath string) (bool, error) {
	key := b.key(remotePath)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.cfg.Bucket, Key: &key})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return true, nil
}

func (b *s3Backend) Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error) {
	key := b.key(remotePath)
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.cfg.Bucket, Key: &key})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	meta := &domain.FileMeta{Path: remotePath}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		meta.ModifiedDate = *out.LastModified
	}
	return meta, nil
}

func (b *s3Backend) List(ctx context.Context, directory string) ([]domain.FileMeta, error) {
	prefix := b.key(directory)
	var out []domain.FileMeta

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: &b.cfg.Bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
		}
		for _, obj := range page.Contents {
			meta := domain.FileMeta{}
			if obj.Key != nil {
				meta.Path = *obj.Key
			}
			if obj.Size != nil {
				meta.Size = *obj.Size
			}
			if obj.LastModified != nil {
				meta.ModifiedDate = *obj.LastModified
			}
			out = append(out, meta)
		}
	}
	return out, nil
}

func (b *s3Backend) Delete(ctx context.Context, remotePath string) error {
	key := b.key(remotePath)
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.cfg.Bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *s3Backend) Download(ctx context.Context, remotePath string, progress ports.ProgressFunc) ([]byte, error) {
	key := b.key(remotePath)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.cfg.Bucket, Key: &key})
	if err != nil {
		var nf *types.NoSuchKey
		if errors.As(err, &nf) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	defer out.Body.Close()

	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	var buf bytes.Buffer
	if _, _, err := copyWithChecksum(&progressWriter{w: &buf, total: size, progress: progress}, out.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VerifyChecksum downloads the object and compares its SHA-256 against
// expected. S3's own ETag isn't usable here: single-part uploads return
// an MD5, multipart a composite md5-partcount digest, neither comparable
// to our SHA-256, so a real download-and-compare is the only reliable
// check, matching the filesystem-style backends.
func (b *s3Backend) VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error) {
	data, err := b.Download(ctx, remotePath, nil)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == expected, nil
}
