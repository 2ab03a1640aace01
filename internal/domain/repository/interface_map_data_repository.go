package repository

import (
	"context"
	"time"

	"Spotmap-App/internal/domain/model"
)

// AreaScope 取得範囲の絞り込み条件
// Bounds と City は同時に使わない（Bounds が優先される）
type AreaScope struct {
	Bounds *model.MapBounds
	City   string
}

// SourceQuery 各テーブルへの読み取り条件
type SourceQuery struct {
	UserIDs  []string // nilの場合はユーザーで絞り込まない（popularモード）
	Area     AreaScope
	SaveTags []string
}

type MapDataRepository interface {
	// GetFollowingIDs 指定ユーザーがフォローしているユーザーID一覧を取得
	GetFollowingIDs(ctx context.Context, userID string) ([]string, error)

	// GetActiveShares 有効期限内のロケーション共有を取得（新しい順）
	GetActiveShares(ctx context.Context, now time.Time, bounds *model.MapBounds) ([]model.LocationShareRecord, error)

	// GetLocations ユーザーが作成したロケーションを取得
	GetLocations(ctx context.Context, q SourceQuery) ([]model.LocationRecord, error)

	// GetUserSavedLocations 内部ロケーションの保存リンクを取得（location結合済み）
	GetUserSavedLocations(ctx context.Context, q SourceQuery) ([]model.UserSavedLocationRecord, error)

	// GetSavedPlaces 外部プレイスの保存を取得
	GetSavedPlaces(ctx context.Context, q SourceQuery) ([]model.SavedPlaceRecord, error)

	// GetProfilesByIDs プロフィールを取得
	GetProfilesByIDs(ctx context.Context, ids []string) ([]model.ProfileRecord, error)
}
