package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
	"Spotmap-App/internal/infrastructure/database"
)

const (
	locationColumns      = "id,name,category,address,city,latitude,longitude,created_by,created_at,google_place_id,opening_hours_data,photos"
	savedLocationColumns = "user_id,location_id,save_tag,created_at,location:locations(" + locationColumns + ")"
	// 埋め込み先の都市名で親の行を絞り込むときは内部結合にする
	savedLocationInnerColumns = "user_id,location_id,save_tag,created_at,location:locations!inner(" + locationColumns + ")"
	savedPlaceColumns    = "place_id,place_name,place_category,city,coordinates,user_id,created_at,save_tag"
	shareColumns         = "id,location_id,latitude,longitude,expires_at,user_id,created_at,location:locations(" + locationColumns + ")"

	// ユーザーで絞り込まない読み取りの上限
	globalReadLimit = 5000
)

var newestFirst = &postgrest.OrderOpts{Ascending: false}

type SupabaseMapDataRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseMapDataRepository(client *database.SupabaseClient) repository.MapDataRepository {
	return &SupabaseMapDataRepository{
		client: client,
	}
}

func (r *SupabaseMapDataRepository) GetFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var follows []model.FollowRecord
	data, count, err := r.client.GetClient().From("follows").
		Select("follower_id,following_id", "exact", false).
		Eq("follower_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得失敗: %w", err)
	}
	_ = count

	if err := json.Unmarshal(data, &follows); err != nil {
		return nil, fmt.Errorf("フォローデータのJSONアンマーシャル失敗: %w", err)
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowingID)
	}
	return ids, nil
}

func (r *SupabaseMapDataRepository) GetActiveShares(ctx context.Context, now time.Time, bounds *model.MapBounds) ([]model.LocationShareRecord, error) {
	query := r.client.GetClient().From("user_location_shares").
		Select(shareColumns, "", false).
		Gt("expires_at", now.UTC().Format(time.RFC3339))
	if bounds != nil {
		query = withBounds(query, "latitude", "longitude", bounds)
	}

	var shares []model.LocationShareRecord
	data, _, err := query.Order("created_at", newestFirst).Execute()
	if err != nil {
		return nil, fmt.Errorf("ロケーション共有の取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &shares); err != nil {
		return nil, fmt.Errorf("ロケーション共有のJSONアンマーシャル失敗: %w", err)
	}
	return shares, nil
}

func (r *SupabaseMapDataRepository) GetLocations(ctx context.Context, q repository.SourceQuery) ([]model.LocationRecord, error) {
	query := r.client.GetClient().From("locations").
		Select(locationColumns, "", false).
		Not("latitude", "is", "null").
		Not("longitude", "is", "null")
	if q.UserIDs != nil {
		query = query.In("created_by", q.UserIDs)
	} else {
		query = query.Limit(globalReadLimit, "")
	}
	if q.Area.Bounds != nil {
		query = withBounds(query, "latitude", "longitude", q.Area.Bounds)
	} else if filter := globalCityFilter(q); filter != "" {
		query = query.Or(filter, "")
	}

	var locations []model.LocationRecord
	data, _, err := query.Order("created_at", newestFirst).Execute()
	if err != nil {
		return nil, fmt.Errorf("ロケーションの取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("ロケーションのJSONアンマーシャル失敗: %w", err)
	}
	return locations, nil
}

func (r *SupabaseMapDataRepository) GetUserSavedLocations(ctx context.Context, q repository.SourceQuery) ([]model.UserSavedLocationRecord, error) {
	columns := savedLocationColumns
	cityFilter := globalCityFilter(q)
	if cityFilter != "" {
		columns = savedLocationInnerColumns
	}
	query := r.client.GetClient().From("user_saved_locations").
		Select(columns, "", false)
	if q.UserIDs != nil {
		query = query.In("user_id", q.UserIDs)
	} else {
		query = query.Limit(globalReadLimit, "")
	}
	if cityFilter != "" {
		query = query.Or(cityFilter, "location")
	}
	if len(q.SaveTags) > 0 {
		query = query.In("save_tag", q.SaveTags)
	}

	var saved []model.UserSavedLocationRecord
	data, _, err := query.Order("created_at", newestFirst).Execute()
	if err != nil {
		return nil, fmt.Errorf("保存ロケーションの取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("保存ロケーションのJSONアンマーシャル失敗: %w", err)
	}
	return saved, nil
}

func (r *SupabaseMapDataRepository) GetSavedPlaces(ctx context.Context, q repository.SourceQuery) ([]model.SavedPlaceRecord, error) {
	query := r.client.GetClient().From("saved_places").
		Select(savedPlaceColumns, "", false).
		Not("coordinates", "is", "null")
	if q.UserIDs != nil {
		query = query.In("user_id", q.UserIDs)
	} else {
		query = query.Limit(globalReadLimit, "")
	}
	if filter := globalCityFilter(q); filter != "" {
		query = query.Or(filter, "")
	}
	if len(q.SaveTags) > 0 {
		query = query.In("save_tag", q.SaveTags)
	}

	var places []model.SavedPlaceRecord
	data, _, err := query.Order("created_at", newestFirst).Execute()
	if err != nil {
		return nil, fmt.Errorf("保存プレイスの取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("保存プレイスのJSONアンマーシャル失敗: %w", err)
	}
	return places, nil
}

func (r *SupabaseMapDataRepository) GetProfilesByIDs(ctx context.Context, ids []string) ([]model.ProfileRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var profiles []model.ProfileRecord
	data, _, err := r.client.GetClient().From("profiles").
		Select("id,username,avatar_url", "", false).
		In("id", ids).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("プロフィールのJSONアンマーシャル失敗: %w", err)
	}
	return profiles, nil
}

// withBounds 緯度経度カラムに境界ボックスの範囲条件を付ける
func withBounds(query *postgrest.FilterBuilder, latColumn, lngColumn string, b *model.MapBounds) *postgrest.FilterBuilder {
	return query.
		Gte(latColumn, formatFloat(b.South)).
		Lte(latColumn, formatFloat(b.North)).
		Gte(lngColumn, formatFloat(b.West)).
		Lte(lngColumn, formatFloat(b.East))
}

// globalCityFilter ユーザーで絞り込まない読み取りの都市名の事前絞り込み条件（or句）
// 都市名とその地区名の部分一致（大文字小文字を区別しない）で、クライアント側の完全一致より広い集合を返す
// ユーザーで絞り込む読み取りは件数が少なく、部分一致の比較も双方向のためクライアント側だけで絞り込む
func globalCityFilter(q repository.SourceQuery) string {
	if q.UserIDs != nil || q.Area.Bounds != nil {
		return ""
	}
	return cityPatternFilter(helper.CityAliases(q.Area.City))
}

// cityPatternFilter 都市名の一覧を city.ilike の or句に変換する
func cityPatternFilter(names []string) string {
	conditions := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(cityPatternReplacer.Replace(name))
		if strings.Trim(name, "* ") == "" {
			continue
		}
		conditions = append(conditions, `city.ilike."*`+name+`*"`)
	}
	return strings.Join(conditions, ",")
}

// cityPatternReplacer or句の区切りや引用符として解釈される文字をワイルドカードに置き換える
var cityPatternReplacer = strings.NewReplacer(
	",", "*", "(", "*", ")", "*", `"`, "*", "\\", "*", "%", "*",
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
