package strategy

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

// SavedStrategy は自分が保存したロケーションとプレイスを集める
type SavedStrategy struct {
	strategyBase
}

func NewSavedStrategy(deps Dependencies) FilterStrategy {
	return &SavedStrategy{strategyBase: newStrategyBase(deps)}
}

func (s *SavedStrategy) Mode() model.FilterMode {
	return model.FilterSaved
}

// Collect は保存リンクと外部プレイス保存を保存タグで絞り込んで取得する
func (s *SavedStrategy) Collect(ctx context.Context, userID string, params *model.FetchParams) (*model.CandidateSet, error) {
	set := model.NewCandidateSet(model.FilterSaved)

	query := repository.SourceQuery{
		UserIDs:  []string{userID},
		Area:     areaScope(params),
		SaveTags: helper.UniqueStrings(params.SelectedSaveTags),
	}

	var (
		savedLinks  []model.UserSavedLocationRecord
		savedPlaces []model.SavedPlaceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.deps.Repo.GetUserSavedLocations(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterSaved, model.SourceSavedLocation.String(), err)
			return nil
		}
		savedLinks = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Repo.GetSavedPlaces(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterSaved, model.SourceSavedPlace.String(), err)
			return nil
		}
		savedPlaces = rows
		return nil
	})
	// 各取得元の失敗はgoroutine内で空として記録済みのため、Waitは常にnilを返す
	_ = g.Wait()

	now := s.deps.Now()
	for i := range savedLinks {
		if pin, ok := helper.PinFromSavedLocation(&savedLinks[i], now); ok {
			pin.IsSaved = true
			set.Add(model.SourceSavedLocation, pin)
		}
	}
	for i := range savedPlaces {
		if pin, ok := helper.PinFromSavedPlace(&savedPlaces[i], now); ok {
			pin.IsSaved = true
			set.Add(model.SourceSavedPlace, pin)
		}
	}

	s.deps.Logger.Debug("🔖 保存済みロケーション収集完了",
		zap.Int("saved_locations", len(savedLinks)),
		zap.Int("saved_places", len(savedPlaces)),
		zap.Strings("save_tags", query.SaveTags),
	)
	return set, nil
}

func (s *SavedStrategy) AreaFilter(params *model.FetchParams) model.PinFilter {
	return substringAreaFilter(params)
}
