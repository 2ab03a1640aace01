package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Spotmap-App/internal/domain/model"
)

// EventPublisher リアルタイムイベントの発行先
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload []byte) error
}

// DatabaseChange Supabaseのデータベースwebhookのペイロード
type DatabaseChange struct {
	Type      string          `json:"type" binding:"required"`
	Table     string          `json:"table" binding:"required"`
	Schema    string          `json:"schema"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// RealtimeWebhookHandler データベースの変更通知をイベントバスへ流す
type RealtimeWebhookHandler struct {
	publisher EventPublisher
	logger    *zap.Logger
}

// NewRealtimeWebhookHandler RealtimeWebhookHandlerの新しいインスタンスを作成
func NewRealtimeWebhookHandler(publisher EventPublisher, logger *zap.Logger) *RealtimeWebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeWebhookHandler{publisher: publisher, logger: logger}
}

// PostDatabaseChange POST /api/realtime/webhook - 変更通知を受け取る
func (h *RealtimeWebhookHandler) PostDatabaseChange(c *gin.Context) {
	var change DatabaseChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	event, ok := model.GetRealtimeEventName(change.Table, strings.ToUpper(change.Type))
	if !ok {
		// 購読対象外の変更は受け取るだけで無視する
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
		return
	}

	payload, err := json.Marshal(change)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), event, payload); err != nil {
		h.logger.Error("❌ リアルタイムイベントの発行に失敗しました", zap.String("event", event), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to publish event: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "published", "event": event})
}
