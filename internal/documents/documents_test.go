package documents

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/pkg/storage"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
)

func TestKeys_OrderAndLabels(t *testing.T) {
	assert.Equal(t, []Key{KeySPAAgreement, KeyTitleDeed, KeyUtilityBill, KeyQuitRent, KeyAssessmentTax}, Keys())
	for _, k := range Keys() {
		assert.NotEmpty(t, k.Label())
	}

	_, err := ParseKey("passport")
	assert.ErrorIs(t, err, ErrUnknownKey)

	k, err := ParseKey("titleDeed")
	require.NoError(t, err)
	assert.Equal(t, KeyTitleDeed, k)
}

func TestCheckFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mime     string
		size     int64
		want     error
	}{
		{"pdf", "deed.pdf", "application/pdf", 1024, nil},
		{"uppercase jpeg", "BILL.JPEG", "image/jpeg", 1024, nil},
		{"jpg", "bill.jpg", "image/jpeg", 1024, nil},
		{"png with charset param", "scan.png", "image/png; charset=binary", 1024, nil},
		{"exactly ten MiB", "deed.pdf", "application/pdf", MaxFileSize, nil},
		{"docx with pdf mime", "contract.docx", "application/pdf", 1024, ErrFileType},
		{"docx with docx mime", "contract.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 1024, ErrFileType},
		{"pdf extension spoofed mime", "deed.pdf", "text/html", 1024, ErrFileType},
		{"mismatched pair", "deed.png", "application/pdf", 1024, ErrFileType},
		{"no extension", "deed", "application/pdf", 1024, ErrFileType},
		{"too large", "deed.pdf", "application/pdf", MaxFileSize + 1, ErrFileSize},
		{"empty", "deed.pdf", "application/pdf", 0, ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFile(tt.fileName, tt.mime, tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckFile_Messages(t *testing.T) {
	assert.Equal(t, "Only PDF, JPG, or PNG files are allowed.", CheckFile("a.docx", "application/pdf", 1).Error())
	assert.Equal(t, "File size must be 10MB or less.", CheckFile("a.pdf", "application/pdf", MaxFileSize+1).Error())
}

func TestOwnsReference(t *testing.T) {
	id := uuid.New()
	p := &StorageProvider{}
	ref := p.GenerateS3Key(id, KeyQuitRent, ".pdf")

	assert.True(t, strings.HasPrefix(ref, "properties/"+id.String()+"/verification/quitRent/"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))
	assert.True(t, OwnsReference(id, KeyQuitRent, ref))
	assert.False(t, OwnsReference(id, KeyTitleDeed, ref))
	assert.False(t, OwnsReference(uuid.New(), KeyQuitRent, ref))
	assert.False(t, OwnsReference(id, KeyQuitRent, "properties/"+id.String()+"/verification/quitRent/"))
}

func newTestProvider() (*StorageProvider, *storage.MemoryClient, StagedStore) {
	s3 := storage.NewMemoryClient()
	staged := NewMemoryStagedStore()
	return NewStorageProvider(s3, "docs", staged, zap.NewNop()), s3, staged
}

func TestStorageProvider_Upload(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("stores pdf under slot prefix", func(t *testing.T) {
		p, s3, staged := newTestProvider()
		up, err := p.Upload(ctx, id, KeyTitleDeed, File{
			Name:        "deed.pdf",
			ContentType: "application/pdf",
			Size:        int64(len(pdfBytes)),
			Body:        bytes.NewReader(pdfBytes),
		})
		require.NoError(t, err)

		assert.Equal(t, KeyTitleDeed, up.Key)
		assert.True(t, OwnsReference(id, KeyTitleDeed, up.Reference))
		assert.Equal(t, int64(len(pdfBytes)), up.Size)
		assert.Equal(t, []string{up.Reference}, s3.Keys("docs"))
		assert.Equal(t, "application/pdf", s3.ContentType("docs", up.Reference))

		pending, err := staged.StagedBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, []string{up.Reference}, pending)
	})

	t.Run("sniffs octet-stream uploads", func(t *testing.T) {
		p, _, _ := newTestProvider()
		up, err := p.Upload(ctx, id, KeyUtilityBill, File{
			Name:        "bill.png",
			ContentType: "application/octet-stream",
			Size:        int64(len(pngBytes)),
			Body:        bytes.NewReader(pngBytes),
		})
		require.NoError(t, err)
		assert.Equal(t, "image/png", up.ContentType)
		assert.True(t, strings.HasSuffix(up.Reference, ".png"))
	})

	t.Run("rejects content that contradicts the declared type", func(t *testing.T) {
		p, s3, _ := newTestProvider()
		_, err := p.Upload(ctx, id, KeyUtilityBill, File{
			Name:        "bill.png",
			ContentType: "image/png",
			Size:        int64(len(pdfBytes)),
			Body:        bytes.NewReader(pdfBytes),
		})
		assert.ErrorIs(t, err, ErrFileType)
		assert.Empty(t, s3.Keys("docs"))
	})

	t.Run("rejects docx regardless of declared type", func(t *testing.T) {
		p, s3, _ := newTestProvider()
		_, err := p.Upload(ctx, id, KeySPAAgreement, File{
			Name:        "spa.docx",
			ContentType: "application/pdf",
			Size:        int64(len(pdfBytes)),
			Body:        bytes.NewReader(pdfBytes),
		})
		assert.ErrorIs(t, err, ErrFileType)
		assert.Empty(t, s3.Keys("docs"))
	})

	t.Run("rejects declared oversize before reading", func(t *testing.T) {
		p, _, _ := newTestProvider()
		_, err := p.Upload(ctx, id, KeySPAAgreement, File{
			Name:        "spa.pdf",
			ContentType: "application/pdf",
			Size:        MaxFileSize + 1,
			Body:        bytes.NewReader(pdfBytes),
		})
		assert.ErrorIs(t, err, ErrFileSize)
	})

	t.Run("rejects unknown slot", func(t *testing.T) {
		p, _, _ := newTestProvider()
		_, err := p.Upload(ctx, id, Key("passport"), File{Name: "a.pdf", Size: 1, Body: bytes.NewReader(pdfBytes)})
		assert.ErrorIs(t, err, ErrUnknownKey)
	})
}

func TestStorageProvider_CommitAndSweep(t *testing.T) {
	ctx := context.Background()
	p, s3, _ := newTestProvider()
	id := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	upload := func(key Key) string {
		up, err := p.Upload(ctx, id, key, File{
			Name:        "doc.pdf",
			ContentType: "application/pdf",
			Size:        int64(len(pdfBytes)),
			Body:        bytes.NewReader(pdfBytes),
		})
		require.NoError(t, err)
		return up.Reference
	}

	kept := upload(KeyTitleDeed)
	stale := upload(KeyQuitRent)
	require.NoError(t, p.Commit(ctx, []string{kept}))

	p.now = func() time.Time { return base.Add(2 * time.Hour) }
	removed, err := p.Sweep(ctx, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{kept}, s3.Keys("docs"))
	assert.NotContains(t, s3.Keys("docs"), stale)

	removed, err = p.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStorageProvider_CommitChecksObjects(t *testing.T) {
	ctx := context.Background()
	p, s3, staged := newTestProvider()
	id := uuid.New()

	up, err := p.Upload(ctx, id, KeyTitleDeed, File{
		Name:        "deed.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(pdfBytes)),
		Body:        bytes.NewReader(pdfBytes),
	})
	require.NoError(t, err)
	forged := p.GenerateS3Key(id, KeyQuitRent, ".pdf")

	err = p.Commit(ctx, []string{up.Reference, forged})
	assert.ErrorIs(t, err, ErrReference)

	pending, err := staged.StagedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{up.Reference}, pending, "nothing is unstaged when one reference is missing")

	require.NoError(t, p.Commit(ctx, []string{up.Reference}))
	pending, err = staged.StagedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, p.Release(ctx, []string{up.Reference}))
	removed, err := p.Sweep(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Empty(t, s3.Keys("docs"))
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	p, _, _ := newTestProvider()
	s := NewSweeper(p, time.Hour, zap.NewNop())

	assert.Error(t, s.Start(context.Background(), "not a schedule"))

	require.NoError(t, s.Start(context.Background(), "@hourly"))
	assert.Error(t, s.Start(context.Background(), "@hourly"))
	s.Stop()
}
