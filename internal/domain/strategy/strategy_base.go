package strategy

import (
	"time"

	"go.uber.org/zap"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
	"Spotmap-App/internal/infrastructure/metrics"
)

// Dependencies 各戦略が共有する依存
type Dependencies struct {
	Repo     repository.MapDataRepository
	Activity repository.ActivityRepository
	Logger   *zap.Logger
	Metrics  *metrics.PinMetrics
	Now      func() time.Time
}

type strategyBase struct {
	deps Dependencies
}

func newStrategyBase(deps Dependencies) strategyBase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return strategyBase{deps: deps}
}

// sourceFailed 取得元の失敗をログに残す（候補は空として扱う）
func (b *strategyBase) sourceFailed(mode model.FilterMode, source string, err error) {
	b.deps.Logger.Warn("⚠️  取得元の読み込みに失敗しました。空として扱います",
		zap.String("mode", string(mode)),
		zap.String("source", source),
		zap.Error(err),
	)
	b.deps.Metrics.SourceFailed(string(mode), source)
}

// areaScope 境界ボックスがあればそれを、なければ解決済みの都市名を使う
func areaScope(params *model.FetchParams) repository.AreaScope {
	if params.MapBounds != nil {
		return repository.AreaScope{Bounds: params.MapBounds}
	}
	return repository.AreaScope{City: helper.ResolveDisplayCity(params.CurrentCity)}
}

// substringAreaFilter 境界ボックス、または都市名の部分一致で絞り込む
func substringAreaFilter(params *model.FetchParams) model.PinFilter {
	if params.MapBounds != nil {
		bounds := params.MapBounds
		return func(pin *model.MapPin) bool { return bounds.Contains(pin.Coordinates) }
	}
	if city := helper.ResolveDisplayCity(params.CurrentCity); city != "" {
		return func(pin *model.MapPin) bool { return helper.CityMatches(pin.City, city) }
	}
	return model.AcceptAll
}

// chunkStrings IN句が長くなりすぎないように分割する
func chunkStrings(values []string, size int) [][]string {
	if size <= 0 || len(values) <= size {
		if len(values) == 0 {
			return nil
		}
		return [][]string{values}
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
