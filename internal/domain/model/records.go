package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// LocationRecord locationsテーブルの行
type LocationRecord struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Address          *string         `json:"address"`
	City             *string         `json:"city"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	GooglePlaceID    *string         `json:"google_place_id"`
	OpeningHoursData json.RawMessage `json:"opening_hours_data"`
	Photos           json.RawMessage `json:"photos"`
}

// GetCoordinates 緯度経度を取得（欠損時はfalse）
func (l *LocationRecord) GetCoordinates() (Coordinates, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *l.Latitude, Lng: *l.Longitude}, true
}

// UserSavedLocationRecord user_saved_locationsテーブルの行（locationを結合）
type UserSavedLocationRecord struct {
	UserID     string          `json:"user_id"`
	LocationID string          `json:"location_id"`
	SaveTag    *string         `json:"save_tag"`
	CreatedAt  time.Time       `json:"created_at"`
	Location   *LocationRecord `json:"location"`
}

// SavedPlaceRecord saved_placesテーブルの行（外部プレイスIDの参照）
type SavedPlaceRecord struct {
	PlaceID       string           `json:"place_id"`
	PlaceName     string           `json:"place_name"`
	PlaceCategory *string          `json:"place_category"`
	City          *string          `json:"city"`
	Coordinates   PlaceCoordinates `json:"coordinates"`
	UserID        string           `json:"user_id"`
	CreatedAt     time.Time        `json:"created_at"`
	SaveTag       *string          `json:"save_tag"`
}

// PlaceCoordinates saved_places.coordinates のJSON表現
// jsonbオブジェクトとJSON文字列のどちらで保存されていても受け付ける
type PlaceCoordinates struct {
	Lat   *float64
	Lng   *float64
	Valid bool
}

func (c *PlaceCoordinates) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("coordinates文字列の解析失敗: %w", err)
		}
		data = []byte(unquoted)
	}
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// 壊れた座標は行ごと捨てるため、ここではエラーにしない
		return nil
	}
	c.Lat, c.Lng = raw.Lat, raw.Lng
	c.Valid = raw.Lat != nil && raw.Lng != nil
	return nil
}

func (c PlaceCoordinates) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(Coordinates{Lat: *c.Lat, Lng: *c.Lng})
}

// Get 緯度経度を取得（欠損時はfalse）
func (c PlaceCoordinates) Get() (Coordinates, bool) {
	if !c.Valid {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *c.Lat, Lng: *c.Lng}, true
}

// LocationShareRecord user_location_sharesテーブルの行（locationを結合）
type LocationShareRecord struct {
	ID         string          `json:"id"`
	LocationID *string         `json:"location_id"`
	Latitude   *float64        `json:"latitude"`
	Longitude  *float64        `json:"longitude"`
	ExpiresAt  time.Time       `json:"expires_at"`
	UserID     string          `json:"user_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Location   *LocationRecord `json:"location"`
}

// FollowRecord followsテーブルの行
type FollowRecord struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

// PostRecord postsテーブルの行
type PostRecord struct {
	LocationID string    `json:"location_id"`
	UserID     string    `json:"user_id"`
	Caption    *string   `json:"caption"`
	Rating     *float64  `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProfileRecord profilesテーブルの行
type ProfileRecord struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}
