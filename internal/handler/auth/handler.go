package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatsync/internal/service/realtime"
	"github.com/zhouzirui/chatsync/pkg/utils"
)

// Handler 登录状态切换的HTTP处理器
type Handler struct {
	engine *realtime.Engine
}

// New 创建认证处理器
func New(engine *realtime.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes 注册认证相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/status", h.handleStatus)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token  string `json:"token"`
		UserID int64  `json:"userId"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}
	if payload.Token == "" {
		utils.RespondError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.engine.Login(r.Context(), payload.Token, payload.UserID); err != nil {
		// 凭证已保存，后续请求会再次尝试连接。
		utils.RespondJSON(w, http.StatusAccepted, map[string]any{
			"status": h.engine.Status(),
			"error":  err.Error(),
		})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"status": h.engine.Status()})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.engine.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.Status())
}
