package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

// FollowingStrategy はフォロー中のユーザーが作成・保存したロケーションを集める
type FollowingStrategy struct {
	strategyBase
}

func NewFollowingStrategy(deps Dependencies) FilterStrategy {
	return &FollowingStrategy{strategyBase: newStrategyBase(deps)}
}

func (s *FollowingStrategy) Mode() model.FilterMode {
	return model.FilterFollowing
}

// Collect はフォロー中ユーザーの作成ロケーション、保存リンク、外部プレイス保存を並行で取得する
func (s *FollowingStrategy) Collect(ctx context.Context, userID string, params *model.FetchParams) (*model.CandidateSet, error) {
	set := model.NewCandidateSet(model.FilterFollowing)

	followedIDs := helper.UniqueStrings(params.SelectedFollowedUserIDs)
	if len(followedIDs) == 0 {
		ids, err := s.deps.Repo.GetFollowingIDs(ctx, userID)
		if err != nil {
			s.sourceFailed(model.FilterFollowing, "follows", err)
			return nil, fmt.Errorf("%w: %w", ErrPrimarySourceFailed, err)
		}
		followedIDs = helper.UniqueStrings(ids)
	}
	if len(followedIDs) == 0 {
		// フォローしているユーザーがいなければ、それ以上は問い合わせない
		s.deps.Logger.Debug("👥 フォロー中のユーザーがいないため空の結果を返します", zap.String("user_id", userID))
		return set, nil
	}

	query := repository.SourceQuery{
		UserIDs: followedIDs,
		Area:    areaScope(params),
	}

	var (
		locations   []model.LocationRecord
		savedLinks  []model.UserSavedLocationRecord
		savedPlaces []model.SavedPlaceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.deps.Repo.GetLocations(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterFollowing, model.SourceAuthoredLocation.String(), err)
			return nil
		}
		locations = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Repo.GetUserSavedLocations(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterFollowing, model.SourceSavedLocation.String(), err)
			return nil
		}
		savedLinks = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Repo.GetSavedPlaces(gctx, query)
		if err != nil {
			s.sourceFailed(model.FilterFollowing, model.SourceSavedPlace.String(), err)
			return nil
		}
		savedPlaces = rows
		return nil
	})
	// 各取得元の失敗はgoroutine内で空として記録済みのため、Waitは常にnilを返す
	_ = g.Wait()

	now := s.deps.Now()
	for i := range locations {
		if pin, ok := helper.PinFromLocation(&locations[i], now); ok {
			pin.IsFollowing = true
			set.Add(model.SourceAuthoredLocation, pin)
		}
	}
	for i := range savedLinks {
		if pin, ok := helper.PinFromSavedLocation(&savedLinks[i], now); ok {
			pin.IsFollowing = true
			set.Add(model.SourceSavedLocation, pin)
		}
	}
	for i := range savedPlaces {
		if pin, ok := helper.PinFromSavedPlace(&savedPlaces[i], now); ok {
			pin.IsFollowing = true
			set.Add(model.SourceSavedPlace, pin)
		}
	}

	s.deps.Logger.Debug("👥 フォロー中ユーザーのロケーション収集完了",
		zap.Int("followed", len(followedIDs)),
		zap.Int("locations", len(locations)),
		zap.Int("saved_locations", len(savedLinks)),
		zap.Int("saved_places", len(savedPlaces)),
	)
	return set, nil
}

func (s *FollowingStrategy) AreaFilter(params *model.FetchParams) model.PinFilter {
	return substringAreaFilter(params)
}
