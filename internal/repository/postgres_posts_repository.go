package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
	"Spotmap-App/internal/infrastructure/database"
)

// PostgresPostsRepository 投稿の取得をPostgreSQLの直接接続で行う
// ロケーションごとの件数制限をウィンドウ関数でDB側に任せられる
type PostgresPostsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresPostsRepository(client *database.PostgreSQLClient) repository.ActivityRepository {
	return &PostgresPostsRepository{
		client: client,
	}
}

// PostResult postsの行を受け取るための構造体
type PostResult struct {
	LocationID string
	UserID     string
	Caption    sql.NullString
	Rating     sql.NullFloat64
	CreatedAt  time.Time
}

// ToPostRecord PostResultをmodel.PostRecordに変換
func (pr *PostResult) ToPostRecord() model.PostRecord {
	post := model.PostRecord{
		LocationID: pr.LocationID,
		UserID:     pr.UserID,
		CreatedAt:  pr.CreatedAt,
	}
	if pr.Caption.Valid {
		post.Caption = &pr.Caption.String
	}
	if pr.Rating.Valid {
		post.Rating = &pr.Rating.Float64
	}
	return post
}

func (r *PostgresPostsRepository) GetRecentPostsByLocationIDs(ctx context.Context, locationIDs []string, perLocation int) ([]model.PostRecord, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}
	if perLocation <= 0 {
		perLocation = 1 << 20
	}

	query := `
		SELECT location_id, user_id, caption, rating, created_at
		FROM (
			SELECT
				p.location_id::text AS location_id,
				p.user_id::text AS user_id,
				p.caption, p.rating, p.created_at,
				ROW_NUMBER() OVER (PARTITION BY p.location_id ORDER BY p.created_at DESC) AS rn
			FROM posts p
			WHERE p.location_id::text = ANY($1)
		) ranked
		WHERE ranked.rn <= $2
		ORDER BY created_at DESC
	`

	rows, err := r.client.DB.QueryContext(ctx, query, pq.Array(locationIDs), perLocation)
	if err != nil {
		return nil, fmt.Errorf("投稿データの取得失敗: %w", err)
	}
	defer rows.Close()

	var posts []model.PostRecord
	for rows.Next() {
		var result PostResult
		if err := rows.Scan(&result.LocationID, &result.UserID, &result.Caption, &result.Rating, &result.CreatedAt); err != nil {
			return nil, fmt.Errorf("投稿データスキャンエラー: %w", err)
		}
		posts = append(posts, result.ToPostRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}

	return posts, nil
}

func (r *PostgresPostsRepository) CountPostsByLocationIDs(ctx context.Context, locationIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(locationIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT p.location_id::text, COUNT(*)
		FROM posts p
		WHERE p.location_id::text = ANY($1)
		GROUP BY p.location_id
	`

	rows, err := r.client.DB.QueryContext(ctx, query, pq.Array(locationIDs))
	if err != nil {
		return nil, fmt.Errorf("投稿数の取得失敗: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var locationID string
		var count int
		if err := rows.Scan(&locationID, &count); err != nil {
			return nil, fmt.Errorf("投稿数スキャンエラー: %w", err)
		}
		counts[locationID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}

	return counts, nil
}
