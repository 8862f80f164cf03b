package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// MaxFileSize is the largest attachment accepted, 50 MiB.
const MaxFileSize int64 = 50 << 20

// MaxAttachments per contact submission.
const MaxAttachments = 5

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = fmt.Errorf("file exceeds %d MiB", MaxFileSize>>20)
	ErrUnsupportedMIMEType = errors.New("file type is not allowed")
	ErrExtensionMismatch   = errors.New("file extension does not match its type")
)

// allowedTypes maps each accepted MIME type to the extensions it may carry.
var allowedTypes = map[string][]string{
	"application/pdf":    {"pdf"},
	"application/msword": {"doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {"docx"},
	"application/vnd.ms-excel": {"xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {"xlsx"},
	"application/vnd.ms-powerpoint":                                             {"ppt"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {"pptx"},
	"text/plain":                   {"txt"},
	"text/csv":                     {"csv"},
	"image/png":                    {"png"},
	"image/jpeg":                   {"jpg", "jpeg"},
	"image/gif":                    {"gif"},
	"image/webp":                   {"webp"},
	"application/zip":              {"zip"},
	"application/x-zip-compressed": {"zip"},
}

// IsAllowedMIMEType reports whether attachments of mimeType are accepted.
func IsAllowedMIMEType(mimeType string) bool {
	_, ok := allowedTypes[normalizeMIME(mimeType)]
	return ok
}

// CheckUpload validates a declared attachment before any URL is issued.
func CheckUpload(fileName, mimeType string, size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	exts, ok := allowedTypes[normalizeMIME(mimeType)]
	if !ok {
		return ErrUnsupportedMIMEType
	}
	ext := Extension(fileName)
	for _, e := range exts {
		if e == ext {
			return nil
		}
	}
	return ErrExtensionMismatch
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func normalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
