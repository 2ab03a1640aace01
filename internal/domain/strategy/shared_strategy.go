package strategy

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

// SharedStrategy は友達が一時的に共有しているロケーションを集める
type SharedStrategy struct {
	strategyBase
}

func NewSharedStrategy(deps Dependencies) FilterStrategy {
	return &SharedStrategy{strategyBase: newStrategyBase(deps)}
}

func (s *SharedStrategy) Mode() model.FilterMode {
	return model.FilterShared
}

// Collect は有効期限内の共有を取得し、共有ユーザーごとに最新の1件だけを残す
func (s *SharedStrategy) Collect(ctx context.Context, userID string, params *model.FetchParams) (*model.CandidateSet, error) {
	set := model.NewCandidateSet(model.FilterShared)
	now := s.deps.Now()

	shares, err := s.deps.Repo.GetActiveShares(ctx, now, params.MapBounds)
	if err != nil {
		// sharedモードでは主クエリなので、失敗したら打ち切る
		s.deps.Logger.Error("❌ ロケーション共有の取得に失敗しました", zap.Error(err))
		s.deps.Metrics.SourceFailed(string(model.FilterShared), model.SourceLocationShare.String())
		return nil, fmt.Errorf("%w: %w", ErrPrimarySourceFailed, err)
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].CreatedAt.After(shares[j].CreatedAt)
	})

	seenUsers := make(map[string]struct{}, len(shares))
	for i := range shares {
		share := &shares[i]
		if share.ExpiresAt.Before(now) {
			continue
		}
		if _, ok := seenUsers[share.UserID]; ok {
			continue
		}
		seenUsers[share.UserID] = struct{}{}

		pin, ok := helper.PinFromShare(share, now)
		if !ok {
			continue
		}
		set.Add(model.SourceLocationShare, pin)
	}

	s.deps.Logger.Debug("📍 共有ロケーション収集完了",
		zap.Int("shares", len(shares)),
		zap.Int("candidates", set.Len()),
	)
	return set, nil
}

// AreaFilter 共有は境界ボックスのみで絞り込む
func (s *SharedStrategy) AreaFilter(params *model.FetchParams) model.PinFilter {
	if params.MapBounds != nil {
		bounds := params.MapBounds
		return func(pin *model.MapPin) bool { return bounds.Contains(pin.Coordinates) }
	}
	return model.AcceptAll
}
