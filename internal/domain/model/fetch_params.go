package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// FilterMode 地図のフィルターモード
type FilterMode string

const (
	FilterShared    FilterMode = "shared"
	FilterFollowing FilterMode = "following"
	FilterPopular   FilterMode = "popular"
	FilterSaved     FilterMode = "saved"
)

// ParseFilterMode 文字列からフィルターモードを解析
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case FilterShared:
		return FilterShared, nil
	case FilterFollowing:
		return FilterFollowing, nil
	case FilterPopular:
		return FilterPopular, nil
	case FilterSaved:
		return FilterSaved, nil
	default:
		return "", fmt.Errorf("不明なフィルターモードです: %s", s)
	}
}

// IsUserScoped 結果が要求ユーザーに依存するモードか
// popular以外は要求ユーザーのフォロー・保存・閲覧範囲から組み立てる
func IsUserScoped(mode FilterMode) bool {
	return mode != FilterPopular
}

// MapBounds 表示中の地図の境界ボックス
type MapBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Bound orb.Bound に変換
func (b *MapBounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Contains 座標が境界ボックス内にあるか
func (b *MapBounds) Contains(c Coordinates) bool {
	return b.Bound().Contains(orb.Point{c.Lng, c.Lat})
}

// Validate 境界ボックスの妥当性チェック
func (b *MapBounds) Validate() error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("座標値が有限の数値ではありません")
		}
	}
	if b.South > b.North || b.West > b.East {
		return fmt.Errorf("無効な境界ボックス: min値がmax値を超えています")
	}
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return fmt.Errorf("座標値が有効範囲外です")
	}
	return nil
}

// FetchParams ピン取得のフィルター条件
type FetchParams struct {
	FilterMode              FilterMode `json:"filterMode"`
	SelectedCategories      []string   `json:"selectedCategories,omitempty"`
	CurrentCity             string     `json:"currentCity,omitempty"`
	SelectedFollowedUserIDs []string   `json:"selectedFollowedUserIds,omitempty"`
	SelectedSaveTags        []string   `json:"selectedSaveTags,omitempty"`
	MapBounds               *MapBounds `json:"mapBounds,omitempty"`
}

// HasBounds 境界ボックスが指定されているか
func (p *FetchParams) HasBounds() bool {
	return p.MapBounds != nil
}
