package notification

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	notificationService "github.com/zhouzirui/chatsync/internal/service/notification"
	"github.com/zhouzirui/chatsync/pkg/utils"
)

// Handler 通知流的HTTP处理器
type Handler struct {
	feed *notificationService.Feed
}

// New 创建通知处理器
func New(feed *notificationService.Feed) *Handler {
	return &Handler{feed: feed}
}

// RegisterRoutes 注册通知相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Patch("/{id}", h.handleMarkRead)
		r.Post("/mark_all_read", h.handleMarkAllRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"items":     h.feed.Items(),
		"hasUnread": h.feed.HasUnread(),
	})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.feed.MarkRead(r.Context(), id); err != nil {
		utils.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.MarkAllRead(r.Context()); err != nil {
		utils.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
