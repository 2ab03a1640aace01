package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"Spotmap-App/internal/domain/model"
)

// Coalescer 同じキーで同時に来た取得要求を1回の取得にまとめる
// 完了（成功・失敗とも）した時点でキーは解放される
type Coalescer struct {
	group singleflight.Group
}

func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

// Do 同じキーの取得が実行中であればその結果を待つ
// shared は他の呼び出しと結果を共有したかどうか
func (c *Coalescer) Do(ctx context.Context, key string, fetch func() ([]model.MapPin, error)) (pins []model.MapPin, shared bool, err error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch()
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		data, _ := res.Val.([]model.MapPin)
		return data, res.Shared, nil
	}
}
