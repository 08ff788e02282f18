package documents

import (
	"path/filepath"
	"strings"
)

// MaxFileSize is the per-document upload limit.
const MaxFileSize = 10 << 20

// allowedTypes pairs each accepted extension with its MIME type.
var allowedTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// CheckFile accepts a file only when both its extension and MIME type are on
// the allow-list, agree with each other, and the size is within MaxFileSize.
func CheckFile(name, mimeType string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	want, ok := allowedTypes[ext]
	if !ok {
		return ErrFileType
	}
	if normalizeMIME(mimeType) != want {
		return ErrFileType
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return ErrFileSize
	}
	return nil
}

// Extension returns the canonical extension stored for a MIME type.
func Extension(mimeType string) string {
	switch normalizeMIME(mimeType) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return ""
}

func normalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
