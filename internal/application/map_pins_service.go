package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Spotmap-App/internal/cache"
	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/service"
	"Spotmap-App/internal/domain/strategy"
	"Spotmap-App/internal/infrastructure/metrics"
)

// MapPinsService 地図ピンの集計を提供するサービス
type MapPinsService interface {
	// GetMapPins フィルター条件に合うピン一覧を取得（キャッシュ → 重複排除 → 集計）
	GetMapPins(ctx context.Context, userID string, params *model.FetchParams) ([]model.MapPin, error)

	// CachedMapPins 要求ユーザーに対する有効なキャッシュがあれば取得（I/Oは発生しない）
	CachedMapPins(userID string, params *model.FetchParams) ([]model.MapPin, bool)
}

// MapPinsServiceDeps MapPinsServiceの依存
type MapPinsServiceDeps struct {
	Strategies strategy.Registry
	Enricher   *service.PinEnricher
	Cache      *cache.PinCache
	Coalescer  *cache.Coalescer
	Metrics    *metrics.PinMetrics
	Logger     *zap.Logger
}

// mapPinsServiceImpl MapPinsServiceの実装
type mapPinsServiceImpl struct {
	strategies strategy.Registry
	enricher   *service.PinEnricher
	cache      *cache.PinCache
	coalescer  *cache.Coalescer
	metrics    *metrics.PinMetrics
	logger     *zap.Logger
}

// NewMapPinsService MapPinsServiceの新しいインスタンスを作成
func NewMapPinsService(deps MapPinsServiceDeps) MapPinsService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewPinCache(model.PinCacheTTL, nil)
	}
	if deps.Coalescer == nil {
		deps.Coalescer = cache.NewCoalescer()
	}
	if deps.Enricher == nil {
		deps.Enricher = service.NewPinEnricher(nil, nil, deps.Logger)
	}
	return &mapPinsServiceImpl{
		strategies: deps.Strategies,
		enricher:   deps.Enricher,
		cache:      deps.Cache,
		coalescer:  deps.Coalescer,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// GetMapPins ピン一覧を取得
func (s *mapPinsServiceImpl) GetMapPins(ctx context.Context, userID string, params *model.FetchParams) ([]model.MapPin, error) {
	if err := validateParams(params); err != nil {
		return nil, fmt.Errorf("フィルター条件の検証失敗: %w", err)
	}

	// キャッシュと重複排除は同じキー（popular以外は要求ユーザーごと）
	cacheKey := cache.BuildCacheKey(userID, params)
	if pins, ok := s.cache.Get(cacheKey); ok {
		s.metrics.CacheLookup(true)
		s.logger.Debug("📦 キャッシュからピンを返します", zap.String("key", cacheKey), zap.Int("count", len(pins)))
		return pins, nil
	}
	s.metrics.CacheLookup(false)

	// 合流した他の呼び出しのキャンセルに巻き込まれないよう、取得自体はキャンセルを切り離す
	fetchCtx := context.WithoutCancel(ctx)
	pins, shared, err := s.coalescer.Do(ctx, cacheKey, func() ([]model.MapPin, error) {
		return s.fetch(fetchCtx, userID, params, cacheKey)
	})
	if shared {
		s.metrics.Coalesced()
	}
	if err != nil {
		return nil, err
	}
	return pins, nil
}

// CachedMapPins 有効なキャッシュを取得
func (s *mapPinsServiceImpl) CachedMapPins(userID string, params *model.FetchParams) ([]model.MapPin, bool) {
	if validateParams(params) != nil {
		return nil, false
	}
	return s.cache.Get(cache.BuildCacheKey(userID, params))
}

// fetch 戦略による取得 → マージ/ランキング → 付与 → 座標の再検証 → キャッシュ保存
func (s *mapPinsServiceImpl) fetch(ctx context.Context, userID string, params *model.FetchParams, cacheKey string) (pins []model.MapPin, err error) {
	mode := params.FilterMode
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ピン集計中に予期しないエラーが発生しました: %v", r)
			pins = nil
		}
		if err != nil {
			s.metrics.FetchFailed(string(mode))
			s.logger.Error("❌ ピン集計に失敗しました", zap.String("mode", string(mode)), zap.Error(err))
			return
		}
		s.metrics.ObserveFetch(string(mode), started)
	}()

	st, err := s.strategies.Get(mode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("🗺️  ピン集計開始",
		zap.String("mode", string(mode)),
		zap.String("user_id", userID),
		zap.String("city", params.CurrentCity),
		zap.String("bounds", helper.BoundsWKT(params.MapBounds)),
	)

	set, err := st.Collect(ctx, userID, params)
	if errors.Is(err, strategy.ErrPrimarySourceFailed) {
		// 主クエリの失敗は空の結果として返すが、キャッシュはしない
		s.metrics.FetchAborted(string(mode))
		s.logger.Warn("⚠️  主クエリの失敗により空の結果を返します（キャッシュしません）",
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return []model.MapPin{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%sモードの候補取得失敗: %w", mode, err)
	}

	categories := helper.NormalizeCategories(params.SelectedCategories)
	accept := st.AreaFilter(params)

	var merged []model.MapPin
	if mode == model.FilterPopular {
		merged = service.RankPopular(set, accept, categories, model.PopularPinLimit)
	} else {
		merged = service.MergeCandidates(set, accept, categories)
	}

	enriched := s.enricher.Enrich(ctx, mode, merged)
	result := service.FilterValidCoordinates(enriched)

	s.cache.Set(cacheKey, result)
	s.metrics.CacheSize(s.cache.ItemCount())

	s.logger.Info("✅ ピン集計完了",
		zap.String("mode", string(mode)),
		zap.Int("candidates", set.Len()),
		zap.Int("pins", len(result)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func validateParams(params *model.FetchParams) error {
	if params == nil {
		return fmt.Errorf("フィルター条件が指定されていません")
	}
	mode, err := model.ParseFilterMode(string(params.FilterMode))
	if err != nil {
		return err
	}
	if mode != params.FilterMode {
		return fmt.Errorf("不明なフィルターモードです: %s", params.FilterMode)
	}
	if params.MapBounds != nil {
		if err := params.MapBounds.Validate(); err != nil {
			return err
		}
	}
	return nil
}
