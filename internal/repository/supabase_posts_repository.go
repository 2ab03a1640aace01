package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
	"Spotmap-App/internal/infrastructure/database"
)

// PostgRESTはロケーションごとの件数制限ができないため、多めに取得してから絞り込む
const postsPerLocationFetchFactor = 5

type SupabasePostsRepository struct {
	client *database.SupabaseClient
}

func NewSupabasePostsRepository(client *database.SupabaseClient) repository.ActivityRepository {
	return &SupabasePostsRepository{
		client: client,
	}
}

func (r *SupabasePostsRepository) GetRecentPostsByLocationIDs(ctx context.Context, locationIDs []string, perLocation int) ([]model.PostRecord, error) {
	if len(locationIDs) == 0 {
		return nil, nil
	}

	query := r.client.GetClient().From("posts").
		Select("location_id,user_id,caption,rating,created_at", "", false).
		In("location_id", locationIDs).
		Order("created_at", newestFirst)
	if perLocation > 0 {
		query = query.Limit(len(locationIDs)*perLocation*postsPerLocationFetchFactor, "")
	}

	var posts []model.PostRecord
	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("投稿データの取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("投稿データのJSONアンマーシャル失敗: %w", err)
	}

	if perLocation <= 0 {
		return posts, nil
	}
	return limitPerLocation(posts, perLocation), nil
}

func (r *SupabasePostsRepository) CountPostsByLocationIDs(ctx context.Context, locationIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(locationIDs) == 0 {
		return counts, nil
	}

	var posts []model.PostRecord
	data, _, err := r.client.GetClient().From("posts").
		Select("location_id", "", false).
		In("location_id", locationIDs).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("投稿数の取得失敗: %w", err)
	}
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("投稿数のJSONアンマーシャル失敗: %w", err)
	}

	for _, p := range posts {
		counts[p.LocationID]++
	}
	return counts, nil
}

// limitPerLocation 新しい順に並んだ投稿をロケーションごとに最大n件に絞る
func limitPerLocation(posts []model.PostRecord, n int) []model.PostRecord {
	seen := make(map[string]int)
	result := make([]model.PostRecord, 0, len(posts))
	for _, p := range posts {
		if seen[p.LocationID] >= n {
			continue
		}
		seen[p.LocationID]++
		result = append(result, p)
	}
	return result
}
