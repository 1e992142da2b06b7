package chat

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatsync/internal/model/chat"
	chatService "github.com/zhouzirui/chatsync/internal/service/chat"
	"github.com/zhouzirui/chatsync/pkg/utils"
)

// maxUploadSize 单个附件上传上限。
const maxUploadSize = 10 << 20

// Handler 聊天组件的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/sessions", h.handleListSessions)
		r.Get("/messages", h.handleListMessages)
		r.Get("/unread", h.handleUnread)
		r.Post("/select", h.handleSelect)
		r.Post("/open", h.handleOpen)
		r.Post("/view", h.handleView)
		r.Post("/alerts/view", h.handleViewAlert)
		r.Post("/messages", h.handleSend)
		r.Post("/mark_all_read", h.handleMarkAllRead)
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessions":  h.chatSvc.Sessions(),
		"activeId":  h.chatSvc.ActiveID(),
		"anyUnread": h.chatSvc.AnyUnread(),
	})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, messages := h.chatSvc.Messages()
	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"conversationId": id,
		"messages":       messages,
	})
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"anyUnread": h.chatSvc.AnyUnread()})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID int64 `json:"userId"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.chatSvc.SelectSession(r.Context(), payload.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var intent chatService.OpenChat
	if !utils.DecodeJSON(w, r, &intent) {
		return
	}

	if err := h.chatSvc.OpenChat(r.Context(), intent); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Open bool `json:"open"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	h.chatSvc.SetOpen(payload.Open)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleViewAlert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SenderID int64 `json:"senderId"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.chatSvc.ViewFromAlert(r.Context(), payload.SenderID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSend 发送消息，支持 JSON 或带附件的 multipart 表单。
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var (
		receiver int64
		content  string
		file     *chat.Attachment
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		id, err := strconv.ParseInt(r.FormValue("receiver"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "receiver must be a number")
			return
		}
		receiver = id
		content = r.FormValue("content")

		attachment, err := readAttachment(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		file = attachment
	} else {
		var payload struct {
			Receiver int64  `json:"receiver"`
			Content  string `json:"content"`
		}
		if !utils.DecodeJSON(w, r, &payload) {
			return
		}
		receiver = payload.Receiver
		content = payload.Content
	}

	message, err := h.chatSvc.SendMessage(r.Context(), receiver, content, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, message)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.MarkAllRead(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readAttachment(r *http.Request) (*chat.Attachment, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid file field")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("failed to read file")
	}
	return &chat.Attachment{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// respondServiceError 将服务层错误映射为 HTTP 状态码。
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage),
		errors.Is(err, chatService.ErrNoConversation),
		errors.Is(err, chatService.ErrInvalidUser),
		errors.Is(err, chatService.ErrSelfChat):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusBadGateway, err.Error())
	}
}
