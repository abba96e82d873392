package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/history"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/metadata"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/presence"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/response"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/storage"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

// HTTPHandler serves the REST surface next to the WebSocket: history reads,
// presence snapshots, room metadata and attachment uploads.
type HTTPHandler struct {
	loader   *history.Loader
	registry *presence.Registry
	metadata metadata.Provider
	storage  storage.Storage
}

func NewHTTPHandler(loader *history.Loader, registry *presence.Registry, meta metadata.Provider, store storage.Storage) *HTTPHandler {
	return &HTTPHandler{
		loader:   loader,
		registry: registry,
		metadata: meta,
		storage:  store,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/rooms/:room_id/messages", h.GetMessages)
		api.GET("/rooms/:room_id/presence", h.GetPresence)
		api.GET("/rooms/:room_id/metadata", h.GetMetadata)
		api.POST("/attachments", h.UploadAttachment)
	}
}

func (h *HTTPHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// GetMessages serves the same backward pagination as load_older for clients
// rendering history outside a live connection.
func (h *HTTPHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	cursor := c.Query("cursor")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	page, err := h.loader.Load(c.Request.Context(), roomID, cursor, limit)
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			response.Error(c, http.StatusGatewayTimeout, domain.ErrCodeTimeout, "history load timed out")
			return
		}
		response.Error(c, http.StatusServiceUnavailable, domain.ErrCodeRoomUnavailable, "history unavailable")
		return
	}
	response.Success(c, page)
}

func (h *HTTPHandler) GetPresence(c *gin.Context) {
	roomID := c.Param("room_id")
	entries := h.registry.List(roomID)
	response.Success(c, gin.H{
		"room_id": roomID,
		"online":  len(entries),
		"entries": entries,
	})
}

func (h *HTTPHandler) GetMetadata(c *gin.Context) {
	roomID := c.Param("room_id")
	meta, err := h.metadata.Get(c.Request.Context(), roomID)
	if err != nil || meta == nil {
		response.NotFound(c, "no metadata for room")
		return
	}
	response.Success(c, meta)
}

// UploadAttachment stores the file bytes and returns the descriptor the
// client embeds in a subsequent chat_message. Upload happens before send;
// the message pipeline never touches blobs.
func (h *HTTPHandler) UploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}
	if file.Size > maxAttachmentSize {
		response.Error(c, http.StatusRequestEntityTooLarge, domain.ErrCodeBadRequest, "file too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := uuid.NewString() + filepath.Ext(file.Filename)
	ctx := c.Request.Context()

	if err := h.storage.Write(ctx, key, src, file.Size, contentType); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("attachment write failed")
		response.InternalError(c, "failed to store attachment")
		return
	}

	url, err := h.storage.GetURL(ctx, key, 24*time.Hour)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("attachment url failed")
		response.InternalError(c, "failed to resolve attachment url")
		return
	}

	response.Created(c, domain.Attachment{
		Filename:         key,
		OriginalFilename: file.Filename,
		SizeBytes:        file.Size,
		MimeType:         contentType,
		URL:              url,
	})
}
