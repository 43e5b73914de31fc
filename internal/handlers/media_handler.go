package handlers

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/raushan728/studyhub-backend/internal/cache"
	"github.com/raushan728/studyhub-backend/internal/httpx"
	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/service"
	"github.com/raushan728/studyhub-backend/internal/storage"
)

// MediaHandler owns the attachment path: multipart upload into blob
// storage plus streaming stored objects back out. The chat core only
// ever sees the issued URL and original filename.
type MediaHandler struct {
	s3                *storage.S3Storage
	chatService       *service.ChatService
	conversationCache *cache.ConversationCache
}

func NewMediaHandler(s3 *storage.S3Storage, chatService *service.ChatService, conversationCache *cache.ConversationCache) *MediaHandler {
	return &MediaHandler{s3: s3, chatService: chatService, conversationCache: conversationCache}
}

// UploadAttachment accepts a multipart file, validates it against the
// size ceiling and MIME allow-list, stores it, and appends a file or
// image message to the chat.
func (h *MediaHandler) UploadAttachment(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "No file uploaded")
	}
	if fileHeader.Size > storage.MaxAttachmentSize {
		return httpx.BadRequest(c, "file_too_large", "File exceeds 10MB limit")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return httpx.Internal(c, "read_upload_failed")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxAttachmentSize+1))
	if err != nil {
		return httpx.Internal(c, "read_upload_failed")
	}

	mime, err := storage.ValidateAttachment(data)
	if err != nil {
		if errors.Is(err, storage.ErrAttachmentTooLarge) {
			return httpx.BadRequest(c, "file_too_large", "File exceeds 10MB limit")
		}
		return httpx.BadRequest(c, "invalid_file_type", err.Error())
	}

	key := storage.BuildAttachmentKey(chatID, fileHeader.Filename)
	if _, err := h.s3.PutObject(c.Context(), key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		log.Printf("[media] attachment put error key=%q err=%v", key, err)
		return httpx.Internal(c, "store_attachment_failed")
	}

	kind := models.FileMessage
	if storage.IsImageMIME(mime) {
		kind = models.ImageMessage
	}
	attachment := &service.Attachment{
		URL:          "/api/media/" + key,
		OriginalName: fileHeader.Filename,
	}

	message, err := h.chatService.AppendMessage(chatID, userID, "", kind, attachment)
	if err != nil {
		// The upload is orphaned if the append is rejected; drop it.
		_ = h.s3.DeleteObject(c.Context(), key)
		return serviceError(c, err, "send_attachment_failed")
	}

	if ids, err := h.chatService.ParticipantIDs(chatID); err == nil {
		h.conversationCache.InvalidateLists(ids)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"fileUrl":  attachment.URL,
		"fileName": attachment.OriginalName,
		"message":  message.ToResponse(),
	})
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

func safeAttachmentKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", errors.New("empty key")
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, "\\") {
		return "", errors.New("invalid key")
	}
	key = strings.TrimLeft(key, "/")
	if !strings.HasPrefix(key, "chat/") {
		return "", errors.New("invalid key")
	}
	return key, nil
}

// GetAttachment streams a stored attachment with ETag revalidation.
func (h *MediaHandler) GetAttachment(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	key, err := safeAttachmentKey(c.Params("*"))
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.s3.GetObject(c.Context(), key)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		log.Printf("[media] attachment get error key=%q err=%v", key, err)
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	contentType := st.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream the object; fasthttp's stream writer surfaces mid-stream
	// errors that fiber's Send helpers would swallow.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		if copyErr != nil {
			log.Printf("[media] attachment stream error key=%q copied=%d err=%v", key, n, copyErr)
			return
		}
		if err := w.Flush(); err != nil {
			log.Printf("[media] attachment stream flush error key=%q copied=%d err=%v", key, n, err)
		}
	})
	return nil
}
