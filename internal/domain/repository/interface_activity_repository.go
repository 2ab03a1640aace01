package repository

import (
	"context"

	"Spotmap-App/internal/domain/model"
)

type ActivityRepository interface {
	// GetRecentPostsByLocationIDs ロケーションごとの投稿を新しい順に取得
	// perLocation が1以上の場合、各ロケーションにつき最大その件数まで
	GetRecentPostsByLocationIDs(ctx context.Context, locationIDs []string, perLocation int) ([]model.PostRecord, error)

	// CountPostsByLocationIDs ロケーションごとの投稿数を取得（popularモードの加点用）
	CountPostsByLocationIDs(ctx context.Context, locationIDs []string) (map[string]int, error)
}
