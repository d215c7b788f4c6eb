// Package evidence holds the upload rules for report attachments. The
// console applies them before sending anything; the server applies them
// again before touching storage.
package evidence

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the per-file cap (10 MiB)
const MaxFileSize int64 = 10 * 1024 * 1024

// AllowedTypes are the accepted MIME types
var AllowedTypes = []string{"image/png", "image/jpeg", "application/pdf"}

// RejectedWarning is surfaced when any file in a batch fails validation
const RejectedWarning = "Some files were rejected. Please upload PNG, JPG, or PDF files under 10MB."

var (
	// ErrInvalid is the parent of every validation failure
	ErrInvalid = errors.New("invalid evidence file")
	// ErrUnsupportedType means the MIME type is not in AllowedTypes
	ErrUnsupportedType = fmt.Errorf("%w: unsupported file type", ErrInvalid)
	// ErrTooLarge means the file exceeds MaxFileSize
	ErrTooLarge = fmt.Errorf("%w: file exceeds 10MB", ErrInvalid)
	// ErrEmpty means the file has no content
	ErrEmpty = fmt.Errorf("%w: file is empty", ErrInvalid)
)

// File describes an attachment before upload
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// Validate checks one file against the type allowlist and size cap
func Validate(f File) error {
	if !IsAllowedType(f.ContentType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, f.ContentType)
	}
	if f.Size <= 0 {
		return ErrEmpty
	}
	if f.Size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

// IsAllowedType reports whether a MIME type (parameters ignored) is accepted
func IsAllowedType(contentType string) bool {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	for _, t := range AllowedTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// Partition splits a batch into accepted and rejected items, keeping order.
// describe gives the File that Validate checks for each item.
func Partition[T any](items []T, describe func(T) File) (valid, rejected []T) {
	for _, it := range items {
		if Validate(describe(it)) != nil {
			rejected = append(rejected, it)
			continue
		}
		valid = append(valid, it)
	}
	return valid, rejected
}

// Extension returns the lower-cased extension of the original file name,
// including the dot, or "" if it has none
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(name)))
}
