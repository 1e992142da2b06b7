package stream

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/service/ui"
	"github.com/zhouzirui/chatsync/pkg/utils"
)

// subscriberBuffer 每个 SSE 订阅者的缓冲区大小。
const subscriberBuffer = 64

// Handler 将 ui 更新以 Server-Sent Events 推送给前端。
type Handler struct {
	broker    *ui.Broker
	heartbeat time.Duration
	logger    *zap.Logger
}

// New 创建 SSE 处理器。heartbeat 为 0 时不发送心跳。
func New(broker *ui.Broker, heartbeat time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{broker: broker, heartbeat: heartbeat, logger: logger}
}

// ServeHTTP 保持连接直到客户端断开。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, cancel := h.broker.Subscribe(subscriberBuffer)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEComment(w, flusher, "stream established"); err != nil {
		return
	}

	h.logger.Debug("sse subscriber attached", zap.Int("subscribers", h.broker.Subscribers()))
	defer h.logger.Debug("sse subscriber detached")

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(update.Kind), update); err != nil {
				return
			}
		case <-tick:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
