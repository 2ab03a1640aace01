package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/usecase"
)

// MapSessionHandler 地図表示セッションのHTTPハンドラー
type MapSessionHandler struct {
	sessions *usecase.MapSessionManager
}

// NewMapSessionHandler MapSessionHandlerの新しいインスタンスを作成
func NewMapSessionHandler(sessions *usecase.MapSessionManager) *MapSessionHandler {
	return &MapSessionHandler{sessions: sessions}
}

// MapSessionResponse セッションの状態
type MapSessionResponse struct {
	SessionID string            `json:"sessionId"`
	Params    model.FetchParams `json:"params"`
	model.MapPinsState
}

func newMapSessionResponse(session *usecase.MapSession) MapSessionResponse {
	state := session.UseCase.State()
	if state.Locations == nil {
		state.Locations = []model.MapPin{}
	}
	return MapSessionResponse{
		SessionID:    session.ID,
		Params:       session.UseCase.Params(),
		MapPinsState: state,
	}
}

// CreateSession POST /api/map/sessions - セッションを開始
func (h *MapSessionHandler) CreateSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	params, ok := bindFetchParams(c)
	if !ok {
		return
	}

	session, err := h.sessions.Create(userID, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create session: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, newMapSessionResponse(session))
}

// GetSession GET /api/map/sessions/:id - セッションの状態を取得
func (h *MapSessionHandler) GetSession(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newMapSessionResponse(session))
}

// UpdateSession PUT /api/map/sessions/:id - フィルター条件を変更
func (h *MapSessionHandler) UpdateSession(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	params, ok := bindFetchParams(c)
	if !ok {
		return
	}
	if err := session.UseCase.SetParams(params); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "session_closed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, newMapSessionResponse(session))
}

// RefetchSession POST /api/map/sessions/:id/refetch - 現在の条件で取り直す
func (h *MapSessionHandler) RefetchSession(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	session.UseCase.Refetch()
	c.JSON(http.StatusOK, newMapSessionResponse(session))
}

// DeleteSession DELETE /api/map/sessions/:id - セッションを終了
func (h *MapSessionHandler) DeleteSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(userID, c.Param("id")); err != nil {
		respondSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MapSessionHandler) lookup(c *gin.Context) (*usecase.MapSession, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Get(userID, c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return nil, false
	}
	return session, true
}

func bindFetchParams(c *gin.Context) (*model.FetchParams, bool) {
	var params model.FetchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return nil, false
	}
	mode, err := model.ParseFilterMode(string(params.FilterMode))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
		return nil, false
	}
	params.FilterMode = mode
	if params.MapBounds != nil {
		if err := params.MapBounds.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": err.Error(),
			})
			return nil, false
		}
	}
	return &params, true
}

func respondSessionError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Session not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}
