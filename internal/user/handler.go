// Package user exposes the profile, avatar and analysis-history endpoints.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"yaothink/internal/auth"
	"yaothink/internal/database"
	"yaothink/internal/envelope"
	"yaothink/internal/storage"
)

const presignTTL = 15 * time.Minute

// RecordStore is the persistence surface the handler needs from the
// analysis-records table. *database.RecordRepository satisfies it.
type RecordStore interface {
	Insert(ctx context.Context, userID uuid.UUID, kind, title string, payload json.RawMessage) (*database.AnalysisRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]database.AnalysisRecord, error)
	Delete(ctx context.Context, userID, recordID uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (map[string]int, error)
}

// Handler handles user-scoped HTTP requests. Avatars is nil when no object
// storage is configured; the upload endpoint then reports unavailability.
type Handler struct {
	auth    auth.Service
	records RecordStore
	avatars storage.Service
	log     *slog.Logger
}

// NewHandler creates a user handler.
func NewHandler(authService auth.Service, records RecordStore, avatars storage.Service, log *slog.Logger) *Handler {
	return &Handler{
		auth:    authService,
		records: records,
		avatars: avatars,
		log:     log,
	}
}

// GetProfile handles GET /api/user/profile.
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.resolveAvatar(c.Request.Context(), profile)
	envelope.OK(c, profile)
}

// UpdateProfile handles PUT /api/user/profile with merge-patch semantics.
// Replacing the avatar deletes the previous object so stale uploads do not
// accumulate in the bucket.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	var oldKey string
	if req.Avatar != nil && h.avatars != nil {
		if current, err := h.auth.Profile(c.Request.Context(), userID); err == nil && current.Avatar != nil {
			oldKey = *current.Avatar
		}
	}

	profile, err := h.auth.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if oldKey != "" && !isExternalURL(oldKey) && req.Avatar != nil && oldKey != *req.Avatar {
		if err := h.avatars.DeleteAvatar(c.Request.Context(), oldKey); err != nil {
			h.log.Warn("delete replaced avatar failed", "user_id", userID, "key", oldKey, "error", err)
		}
	}

	h.resolveAvatar(c.Request.Context(), profile)
	envelope.OK(c, profile)
}

// resolveAvatar swaps a stored avatar object key for a time-limited download
// URL. Rows holding absolute URLs (pre-S3 accounts) pass through untouched,
// as does everything when no object storage is configured.
func (h *Handler) resolveAvatar(ctx context.Context, profile *auth.UserProfile) {
	if h.avatars == nil || profile == nil || profile.Avatar == nil || *profile.Avatar == "" {
		return
	}
	if isExternalURL(*profile.Avatar) {
		return
	}
	url, err := h.avatars.PresignAvatarDownload(ctx, *profile.Avatar, presignTTL)
	if err != nil {
		h.log.Warn("presign avatar download failed", "key", *profile.Avatar, "error", err)
		return
	}
	profile.Avatar = &url
}

func isExternalURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// AvatarUploadRequest asks for a presigned avatar upload URL.
type AvatarUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// AvatarUploadURL handles POST /api/user/avatar/upload-url.
func (h *Handler) AvatarUploadURL(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}
	if h.avatars == nil {
		envelope.Abort(c, http.StatusServiceUnavailable, "头像存储未配置")
		return
	}

	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	url, key, err := h.avatars.PresignAvatarUpload(c.Request.Context(), userID.String(), req.ContentType, presignTTL)
	if err != nil {
		h.log.Error("presign avatar upload failed", "user_id", userID, "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	envelope.OK(c, gin.H{
		"upload_url": url,
		"key":        key,
		"expires_in": int(presignTTL.Seconds()),
	})
}

// ListHistory handles GET /api/user/history/:kind.
func (h *Handler) ListHistory(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	kind := c.Param("kind")
	if !database.ValidKind(kind) {
		envelope.Abort(c, http.StatusBadRequest, "未知的记录类型")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.records.ListByUser(c.Request.Context(), userID, kind, limit)
	if err != nil {
		h.log.Error("list history failed", "user_id", userID, "kind", kind, "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}
	envelope.OK(c, records)
}

// SaveRecordRequest stores one analysis result in the history.
type SaveRecordRequest struct {
	Kind    string          `json:"kind" binding:"required"`
	Title   string          `json:"title"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// SaveHistory handles POST /api/user/history.
func (h *Handler) SaveHistory(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	var req SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		envelope.Abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if !database.ValidKind(req.Kind) {
		envelope.Abort(c, http.StatusBadRequest, "未知的记录类型")
		return
	}

	record, err := h.records.Insert(c.Request.Context(), userID, req.Kind, req.Title, req.Payload)
	if err != nil {
		h.log.Error("save history failed", "user_id", userID, "kind", req.Kind, "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}
	envelope.OK(c, record)
}

// DeleteHistory handles DELETE /api/user/history/:kind/:id.
func (h *Handler) DeleteHistory(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		envelope.Abort(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	err = h.records.Delete(c.Request.Context(), userID, recordID)
	if errors.Is(err, database.ErrRecordNotFound) {
		envelope.Abort(c, http.StatusNotFound, "记录不存在")
		return
	}
	if err != nil {
		h.log.Error("delete history failed", "user_id", userID, "record_id", recordID, "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}
	envelope.OK(c, gin.H{"message": "删除成功"})
}

// Stats handles GET /api/user/stats.
func (h *Handler) Stats(c *gin.Context) {
	userID, ok := auth.ContextUserID(c)
	if !ok {
		envelope.Abort(c, http.StatusUnauthorized, "无法验证凭据")
		return
	}

	counts, err := h.records.CountByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("load stats failed", "user_id", userID, "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	envelope.OK(c, gin.H{
		"total":   total,
		"by_kind": counts,
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		envelope.Abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrEmailInUse):
		envelope.Abort(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("user request failed", "path", c.FullPath(), "error", err)
		envelope.Abort(c, http.StatusInternalServerError, "服务器内部错误")
	}
}
