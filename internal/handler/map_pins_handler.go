package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Spotmap-App/internal/application"
	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

// UserIDHeader 要求ユーザーを示すヘッダー
const UserIDHeader = "X-User-ID"

// MapPinsHandler 地図ピンに関するHTTPハンドラー
type MapPinsHandler struct {
	mapPinsService application.MapPinsService
}

// NewMapPinsHandler MapPinsHandlerの新しいインスタンスを作成
func NewMapPinsHandler(mapPinsService application.MapPinsService) *MapPinsHandler {
	return &MapPinsHandler{
		mapPinsService: mapPinsService,
	}
}

// GetMapPins GET /api/map/pins - フィルター条件に合うピン一覧を取得
func (h *MapPinsHandler) GetMapPins(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	params, err := parseFetchParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
		return
	}

	pins, err := h.mapPinsService.GetMapPins(c.Request.Context(), userID, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.MapPinsState{
			Locations: []model.MapPin{},
			Error:     stringPtr("Failed to get map pins: " + err.Error()),
		})
		return
	}
	if pins == nil {
		pins = []model.MapPin{}
	}

	c.JSON(http.StatusOK, model.MapPinsState{Locations: pins})
}

// parseFetchParams クエリパラメータからフィルター条件を組み立てる
// bbox は min_lng,min_lat,max_lng,max_lat 形式
func parseFetchParams(c *gin.Context) (*model.FetchParams, error) {
	mode, err := model.ParseFilterMode(c.DefaultQuery("filter", string(model.FilterPopular)))
	if err != nil {
		return nil, err
	}

	params := &model.FetchParams{
		FilterMode:              mode,
		SelectedCategories:      splitList(c.Query("categories")),
		CurrentCity:             strings.TrimSpace(c.Query("city")),
		SelectedFollowedUserIDs: splitList(c.Query("followed")),
		SelectedSaveTags:        splitList(c.Query("tags")),
	}

	if bbox := c.Query("bbox"); bbox != "" {
		bounds, err := helper.ParseBBox(bbox)
		if err != nil {
			return nil, err
		}
		params.MapBounds = bounds
	}
	return params, nil
}

func requireUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "missing_user",
			"message": UserIDHeader + " header is required",
		})
		return "", false
	}
	return userID, true
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func stringPtr(s string) *string {
	return &s
}
