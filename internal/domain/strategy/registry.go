package strategy

import (
	"fmt"

	"Spotmap-App/internal/domain/model"
)

// Registry フィルターモードから戦略を引く
type Registry map[model.FilterMode]FilterStrategy

// NewRegistry 全モードの戦略を登録したレジストリを作成
func NewRegistry(deps Dependencies) Registry {
	registry := Registry{}
	for _, s := range []FilterStrategy{
		NewSharedStrategy(deps),
		NewFollowingStrategy(deps),
		NewPopularStrategy(deps),
		NewSavedStrategy(deps),
	} {
		registry[s.Mode()] = s
	}
	return registry
}

// Get モードに対応する戦略を取得
func (r Registry) Get(mode model.FilterMode) (FilterStrategy, error) {
	s, ok := r[mode]
	if !ok {
		return nil, fmt.Errorf("フィルターモード %s の戦略が登録されていません", mode)
	}
	return s, nil
}
