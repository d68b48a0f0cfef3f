package notification

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"notibell/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	service *Service
	tracker *Tracker
	digest  *Digest
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service, tracker *Tracker, digest *Digest) *Handler {
	return &Handler{service: service, tracker: tracker, digest: digest}
}

// Notify handles POST /api/v1/notifications
// Creates a notification and schedules its delivery; returns 202 Accepted.
func (h *Handler) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Notify(c.Request.Context(), &req)
	if err != nil {
		slog.Error("notify failed", "nid", req.NID, "error", err)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, resp)
}

// Welcome handles POST /api/v1/users/:uid/welcome
// Triggered by the registration flow for new users.
func (h *Handler) Welcome(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	if err := h.service.SendWelcome(c.Request.Context(), uid); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// GetInbox handles GET /api/v1/users/:uid/notifications
// With ?nids=a,b returns those records; otherwise the unread/read inbox.
func (h *Handler) GetInbox(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	if nids, exists := c.GetQueryArray("nids"); exists {
		records, err := h.tracker.GetByNIDs(c.Request.Context(), uid, nids)
		if err != nil {
			common.HandleError(c, err)
			return
		}
		common.Success(c, http.StatusOK, records)
		return
	}

	inbox, err := h.tracker.Get(c.Request.Context(), uid)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, inbox)
}

// GetCount handles GET /api/v1/users/:uid/notifications/count
func (h *Handler) GetCount(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	count, err := h.tracker.GetCount(c.Request.Context(), uid)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead handles PUT /api/v1/users/:uid/notifications/:nid/read
func (h *Handler) MarkRead(c *gin.Context) {
	h.markState(c, h.tracker.MarkRead)
}

// MarkUnread handles PUT /api/v1/users/:uid/notifications/:nid/unread
func (h *Handler) MarkUnread(c *gin.Context) {
	h.markState(c, h.tracker.MarkUnread)
}

func (h *Handler) markState(c *gin.Context, mark func(ctx context.Context, uid UserID, nid string) error) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	if err := mark(c.Request.Context(), uid, c.Param("nid")); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllRead handles POST /api/v1/users/:uid/notifications/read
// An optional JSON body {"nids": [...]} restricts the operation.
func (h *Handler) MarkAllRead(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	var body struct {
		NIDs []string `json:"nids"`
	}
	// Body is optional; ignore bind errors from an empty body.
	_ = c.ShouldBindJSON(&body)

	if err := h.tracker.MarkAllRead(c.Request.Context(), uid, body.NIDs); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// DeleteAll handles DELETE /api/v1/users/:uid/notifications
func (h *Handler) DeleteAll(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	if err := h.tracker.DeleteAll(c.Request.Context(), uid); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// GetDigest handles GET /api/v1/users/:uid/notifications/digest?interval=day
func (h *Handler) GetDigest(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	interval := c.DefaultQuery("interval", "day")
	records, err := h.digest.GetUnreadInterval(c.Request.Context(), uid, interval)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, records)
}

// GetAll handles GET /api/v1/users/:uid/notifications/all?type=post
func (h *Handler) GetAll(c *gin.Context) {
	uid, ok := h.uidParam(c)
	if !ok {
		return
	}

	nids, err := h.digest.GetAll(c.Request.Context(), uid, c.Query("type"))
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"nids": nids})
}

// uidParam parses the :uid path parameter.
func (h *Handler) uidParam(c *gin.Context) (UserID, bool) {
	raw := c.Param("uid")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		common.Error(c, http.StatusBadRequest, "invalid uid: "+raw)
		return 0, false
	}
	return UserID(id), true
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications", h.Notify)
	rg.POST("/users/:uid/welcome", h.Welcome)
	rg.GET("/users/:uid/notifications", h.GetInbox)
	rg.GET("/users/:uid/notifications/count", h.GetCount)
	rg.GET("/users/:uid/notifications/digest", h.GetDigest)
	rg.GET("/users/:uid/notifications/all", h.GetAll)
	rg.POST("/users/:uid/notifications/read", h.MarkAllRead)
	rg.PUT("/users/:uid/notifications/:nid/read", h.MarkRead)
	rg.PUT("/users/:uid/notifications/:nid/unread", h.MarkUnread)
	rg.DELETE("/users/:uid/notifications", h.DeleteAll)
}
