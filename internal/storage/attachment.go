package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxAttachmentSize caps chat uploads at 10 MiB.
const MaxAttachmentSize = 10 * 1024 * 1024

var (
	ErrAttachmentTooLarge = errors.New("attachment exceeds 10MB limit")
	ErrAttachmentType     = errors.New("invalid file type. Only images, PDFs, and documents are allowed")
)

var allowedDocumentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// ValidateAttachment sniffs the upload's real content type (the
// declared Content-Type header is untrusted) and enforces the size
// ceiling and the allow-list: any image, PDF, Word documents, plain
// text. Returns the detected MIME type.
func ValidateAttachment(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrAttachmentType
	}
	if len(data) > MaxAttachmentSize {
		return "", ErrAttachmentTooLarge
	}

	detected := mimetype.Detect(data)
	mime := detected.String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	if strings.HasPrefix(mime, "image/") || allowedDocumentTypes[mime] {
		return mime, nil
	}
	return "", ErrAttachmentType
}

// IsImageMIME reports whether the detected type should be stored as an
// image message rather than a file message.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

// BuildAttachmentKey generates the object key for a chat upload. The
// original filename only contributes its extension; the key itself is
// random so uploads never collide or leak user-supplied names.
func BuildAttachmentKey(conversationID uint, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return fmt.Sprintf("chat/%d/%s%s", conversationID, uuid.NewString(), ext)
}
