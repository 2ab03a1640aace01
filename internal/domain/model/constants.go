package model

import "time"

// CategoryConstants はアプリケーションで使用するカテゴリの定数
const (
	CategoryBar        = "bar"
	CategoryRestaurant = "restaurant"
	CategoryCafe       = "cafe"
	CategoryOther      = "other"
)

// CategoryPriorityMap は同一座標の競合時に使うカテゴリ優先度
var CategoryPriorityMap = map[string]int{
	CategoryBar:        3,
	CategoryRestaurant: 2,
	CategoryCafe:       1,
	CategoryOther:      0,
}

// CategoryAliasMap は外部データのカテゴリ表記から正規カテゴリへのマッピング
var CategoryAliasMap = map[string]string{
	"bar":           CategoryBar,
	"bars":          CategoryBar,
	"pub":           CategoryBar,
	"night_club":    CategoryBar,
	"wine_bar":      CategoryBar,
	"restaurant":    CategoryRestaurant,
	"restaurants":   CategoryRestaurant,
	"food":          CategoryRestaurant,
	"diner":         CategoryRestaurant,
	"meal_takeaway": CategoryRestaurant,
	"cafe":          CategoryCafe,
	"café":          CategoryCafe,
	"cafes":         CategoryCafe,
	"coffee":        CategoryCafe,
	"coffee_shop":   CategoryCafe,
	"bakery":        CategoryCafe,
	"other":         CategoryOther,
}

// GetCategoryPriority は正規化済みカテゴリの優先度を取得する
func GetCategoryPriority(category string) int {
	if p, ok := CategoryPriorityMap[category]; ok {
		return p
	}
	return 0 // 未知のカテゴリはotherと同じ扱い
}

// RealtimeEventConstants はリアルタイム更新で購読するイベント名
const (
	EventSavedLocationInsert = "saved_location_insert"
	EventSavedLocationDelete = "saved_location_delete"
	EventSavedPlaceInsert    = "saved_place_insert"
	EventSavedPlaceDelete    = "saved_place_delete"
)

// GetRealtimeEvents はピン再取得のトリガーとなるイベント一覧を取得する
func GetRealtimeEvents() []string {
	return []string{
		EventSavedLocationInsert,
		EventSavedLocationDelete,
		EventSavedPlaceInsert,
		EventSavedPlaceDelete,
	}
}

// RealtimeTableEventMap はテーブル名と変更種別からイベント名へのマッピング
var RealtimeTableEventMap = map[string]map[string]string{
	"user_saved_locations": {
		"INSERT": EventSavedLocationInsert,
		"DELETE": EventSavedLocationDelete,
	},
	"saved_places": {
		"INSERT": EventSavedPlaceInsert,
		"DELETE": EventSavedPlaceDelete,
	},
}

// GetRealtimeEventName はテーブル名と変更種別からイベント名を取得する
func GetRealtimeEventName(table, changeType string) (string, bool) {
	events, ok := RealtimeTableEventMap[table]
	if !ok {
		return "", false
	}
	name, ok := events[changeType]
	return name, ok
}

// 集計パイプラインの調整値
const (
	PinCacheTTL          = 5 * time.Minute
	CoalesceWindow       = 150 * time.Millisecond
	RealtimeDebounce     = 1 * time.Second
	SessionIdleTTL       = 30 * time.Minute
	PopularPinLimit      = 300
	EnrichmentBatchSize  = 300
	SnippetMaxLength     = 40
	PostScoreBonus       = 0.5
	NewPinWindow         = 7 * 24 * time.Hour
	CoordinatePrecision  = 6
	CacheBoundsPrecision = 4
)

// UserActionConstants はユーザー表示に付与するアクション
const (
	ActionSaved  = "saved"
	ActionLiked  = "liked"
	ActionFaved  = "faved"
	ActionPosted = "posted"
)

// ActivityTypeConstants は最新アクティビティの種別
const (
	ActivityReview = "review"
	ActivityPhoto  = "photo"
)
