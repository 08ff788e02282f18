package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/pkg/storage"
)

// sniffLen is how much of a file is read to detect its real content type.
const sniffLen = 3072

// StorageProvider stores ownership documents in S3 and tracks which uploads
// are still waiting for a verification submission.
type StorageProvider struct {
	s3     storage.S3Client
	bucket string
	staged StagedStore
	logger *zap.Logger
	now    func() time.Time
}

func NewStorageProvider(s3 storage.S3Client, bucket string, staged StagedStore, logger *zap.Logger) *StorageProvider {
	return &StorageProvider{
		s3:     s3,
		bucket: bucket,
		staged: staged,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateS3Key returns the object key for a new upload into a slot.
func (p *StorageProvider) GenerateS3Key(propertyID uuid.UUID, key Key, ext string) string {
	return fmt.Sprintf("%s%s", keyPrefix(propertyID, key), uuid.NewString()+ext)
}

func keyPrefix(propertyID uuid.UUID, key Key) string {
	return fmt.Sprintf("properties/%s/verification/%s/", propertyID, key)
}

// OwnsReference reports whether ref was issued for this property and slot.
func OwnsReference(propertyID uuid.UUID, key Key, ref string) bool {
	rest, ok := strings.CutPrefix(ref, keyPrefix(propertyID, key))
	return ok && rest != "" && !strings.Contains(rest, "/")
}

// Upload checks a file against the slot rules using both its declared and
// sniffed content type, then stores it as a staged upload.
func (p *StorageProvider) Upload(ctx context.Context, propertyID uuid.UUID, key Key, f File) (*Upload, error) {
	if !key.Valid() {
		return nil, ErrUnknownKey
	}
	if f.Size > MaxFileSize {
		return nil, ErrFileSize
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	sniffed := mimetype.Detect(head).String()

	declared := normalizeMIME(f.ContentType)
	if declared == "" || declared == "application/octet-stream" {
		declared = sniffed
	}
	if err := CheckFile(f.Name, declared, f.Size); err != nil {
		return nil, err
	}
	if err := CheckFile(f.Name, sniffed, f.Size); err != nil {
		p.logger.Warn("Rejected upload with mismatched content",
			zap.String("property_id", propertyID.String()),
			zap.String("key", string(key)),
			zap.String("declared", f.ContentType),
			zap.String("sniffed", sniffed))
		return nil, err
	}

	body := io.MultiReader(bytes.NewReader(head), f.Body)
	counter := &countingReader{r: io.LimitReader(body, MaxFileSize+1)}

	objectKey := p.GenerateS3Key(propertyID, key, Extension(declared))
	if err := p.s3.Upload(ctx, p.bucket, objectKey, declared, counter); err != nil {
		return nil, err
	}
	if counter.n > MaxFileSize {
		if derr := p.s3.Delete(ctx, p.bucket, objectKey); derr != nil {
			p.logger.Error("Failed to delete oversized upload", zap.String("s3_key", objectKey), zap.Error(derr))
		}
		return nil, ErrFileSize
	}

	uploadedAt := p.now()
	if err := p.staged.Stage(ctx, objectKey, uploadedAt); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	p.logger.Info("Document uploaded",
		zap.String("property_id", propertyID.String()),
		zap.String("key", string(key)),
		zap.String("s3_key", objectKey),
		zap.Int64("size", counter.n))

	return &Upload{
		Key:         key,
		Reference:   objectKey,
		ContentType: declared,
		Size:        counter.n,
		UploadedAt:  uploadedAt,
	}, nil
}

// Commit marks references as kept by a submitted verification. Every reference
// must name a stored object; nothing is unstaged otherwise.
func (p *StorageProvider) Commit(ctx context.Context, refs []string) error {
	for _, ref := range refs {
		ok, err := p.s3.Exists(ctx, p.bucket, ref)
		if err != nil {
			return fmt.Errorf("check document %s: %w", ref, err)
		}
		if !ok {
			return fmt.Errorf("%s was never uploaded: %w", ref, ErrReference)
		}
	}
	if err := p.staged.Unstage(ctx, refs...); err != nil {
		return fmt.Errorf("unstage documents: %w", err)
	}
	return nil
}

// Release puts committed references back under the sweeper, for a submission
// that could not be saved.
func (p *StorageProvider) Release(ctx context.Context, refs []string) error {
	at := p.now()
	for _, ref := range refs {
		if err := p.staged.Stage(ctx, ref, at); err != nil {
			return fmt.Errorf("restage %s: %w", ref, err)
		}
	}
	return nil
}

// PresignedURL returns a time-limited download link for a stored document.
func (p *StorageProvider) PresignedURL(ctx context.Context, ref string, expiration time.Duration) (string, error) {
	return p.s3.GetPresignedURL(ctx, p.bucket, ref, expiration)
}

// Sweep deletes staged uploads older than ttl and returns how many were removed.
func (p *StorageProvider) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := p.now().Add(-ttl)
	refs, err := p.staged.StagedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ref := range refs {
		if err := p.s3.Delete(ctx, p.bucket, ref); err != nil {
			p.logger.Error("Failed to delete stale upload", zap.String("s3_key", ref), zap.Error(err))
			continue
		}
		if err := p.staged.Unstage(ctx, ref); err != nil {
			p.logger.Error("Failed to unstage upload", zap.String("s3_key", ref), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
