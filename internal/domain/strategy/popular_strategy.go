package strategy

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

// PopularStrategy は全ユーザーの保存・投稿から人気のロケーションを集める
type PopularStrategy struct {
	strategyBase
}

func NewPopularStrategy(deps Dependencies) FilterStrategy {
	return &PopularStrategy{strategyBase: newStrategyBase(deps)}
}

func (s *PopularStrategy) Mode() model.FilterMode {
	return model.FilterPopular
}

// Collect はsaved_places、locations、user_saved_locationsを並行で取得し、
// 内部ロケーションの保存数と投稿数を集計する
func (s *PopularStrategy) Collect(ctx context.Context, userID string, params *model.FetchParams) (*model.CandidateSet, error) {
	set := model.NewCandidateSet(model.FilterPopular)

	query := repository.SourceQuery{
		Area: areaScope(params),
	}

	var (
		savedPlaces []model.SavedPlaceRecord
		locations   []model.LocationRecord
		savedLinks  []model.UserSavedLocationRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.deps.Repo.GetSavedPlaces(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterPopular, model.SourceSavedPlace.String(), err)
			return nil
		}
		savedPlaces = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Repo.GetLocations(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterPopular, model.SourceAuthoredLocation.String(), err)
			return nil
		}
		locations = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Repo.GetUserSavedLocations(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterPopular, model.SourceSavedLocation.String(), err)
			return nil
		}
		savedLinks = rows
		return nil
	})
	// 各取得元の失敗はgoroutine内で空として記録済みのため、Waitは常にnilを返す
	_ = g.Wait()

	now := s.deps.Now()
	internalIDs := make([]string, 0, len(locations)+len(savedLinks))

	for i := range locations {
		if pin, ok := helper.PinFromLocation(&locations[i], now); ok {
			set.Add(model.SourceAuthoredLocation, pin)
			internalIDs = append(internalIDs, pin.ID)
		}
	}
	for i := range savedLinks {
		link := &savedLinks[i]
		set.SaveCounts[link.LocationID]++
		if pin, ok := helper.PinFromSavedLocation(link, now); ok {
			set.Add(model.SourceSavedLocation, pin)
			internalIDs = append(internalIDs, pin.ID)
		}
	}
	for i := range savedPlaces {
		if pin, ok := helper.PinFromSavedPlace(&savedPlaces[i], now); ok {
			set.Add(model.SourceSavedPlace, pin)
		}
	}

	s.collectPostCounts(ctx, set, helper.UniqueStrings(internalIDs))

	s.deps.Logger.Debug("🔥 人気ロケーション収集完了",
		zap.Int("saved_places", len(savedPlaces)),
		zap.Int("locations", len(locations)),
		zap.Int("saved_locations", len(savedLinks)),
		zap.Int("posts_locations", len(set.PostCounts)),
	)
	return set, nil
}

// collectPostCounts 内部ロケーションの投稿数を集計する（失敗しても加点なしで続行）
func (s *PopularStrategy) collectPostCounts(ctx context.Context, set *model.CandidateSet, internalIDs []string) {
	if s.deps.Activity == nil {
		return
	}
	for _, chunk := range chunkStrings(internalIDs, model.EnrichmentBatchSize) {
		counts, err := s.deps.Activity.CountPostsByLocationIDs(ctx, chunk)
		if err != nil {
			s.sourceFailed(model.FilterPopular, "posts", err)
			continue
		}
		for id, n := range counts {
			set.PostCounts[id] += n
		}
	}
}

// AreaFilter 境界ボックスがなければ都市名の完全一致で絞り込む
// 他のモードの部分一致とは挙動が異なる
func (s *PopularStrategy) AreaFilter(params *model.FetchParams) model.PinFilter {
	if params.MapBounds != nil {
		bounds := params.MapBounds
		return func(pin *model.MapPin) bool { return bounds.Contains(pin.Coordinates) }
	}
	if city := helper.ResolveDisplayCity(params.CurrentCity); city != "" {
		return func(pin *model.MapPin) bool { return helper.CityEquals(pin.City, city) }
	}
	return model.AcceptAll
}
