package model

import (
	"encoding/json"
	"time"
)

// Coordinates 緯度経度
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UserAttribution ピンを保存・共有したユーザー情報
type UserAttribution struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Action    string `json:"action,omitempty"` // saved | liked | faved | posted
}

// LatestActivity ピンに紐づく最新の投稿
type LatestActivity struct {
	Type      string    `json:"type"` // review | photo
	Snippet   string    `json:"snippet,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MapPin 地図上に表示する1地点（リクエスト単位で再構築される読み取り専用の投影）
type MapPin struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Address          string          `json:"address,omitempty"`
	City             string          `json:"city,omitempty"`
	GooglePlaceID    string          `json:"googlePlaceId,omitempty"`
	Coordinates      Coordinates     `json:"coordinates"`
	OpeningHoursData json.RawMessage `json:"openingHoursData,omitempty"`
	Photos           json.RawMessage `json:"photos,omitempty"`

	IsFollowing   bool `json:"isFollowing,omitempty"`
	IsSaved       bool `json:"isSaved,omitempty"`
	IsNew         bool `json:"isNew,omitempty"`
	IsRecommended bool `json:"isRecommended,omitempty"`

	// popularモードのみ設定される
	RecommendationScore *float64 `json:"recommendationScore,omitempty"`

	OwnerUserID string    `json:"ownerUserId"`
	CreatedAt   time.Time `json:"createdAt"`

	SharedByUser   *UserAttribution `json:"sharedByUser,omitempty"`
	SavedByUser    *UserAttribution `json:"savedByUser,omitempty"`
	LatestActivity *LatestActivity  `json:"latestActivity,omitempty"`
}

// DedupKey 重複排除キー（外部IDを優先し、なければ内部ID）
func (p *MapPin) DedupKey() string {
	if p.GooglePlaceID != "" {
		return p.GooglePlaceID
	}
	return p.ID
}

// MapPinsState 画面側に公開する状態
type MapPinsState struct {
	Locations []MapPin `json:"locations"`
	Loading   bool     `json:"loading"`
	Error     *string  `json:"error"`
}
