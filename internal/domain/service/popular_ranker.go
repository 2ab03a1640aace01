package service

import (
	"sort"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

type scoredPin struct {
	pin   model.MapPin
	score float64
	// saved_places同士の座標衝突のみカテゴリ優先度で入れ替える
	fromSavedPlace bool
}

// RankPopular はpopularモードの候補を統合し、スコア順に並べて上位 limit 件を返す
//
//   - 内部ロケーション: 保存数 + 投稿数 * PostScoreBonus
//   - saved_places: 同じplace_idの行数（代表行は先頭の1件）
//   - 内部ロケーションが持つgoogle_place_idと同じsaved_placesは丸ごと捨てる
//   - saved_places同士が同じ座標にある場合はカテゴリ優先度の高い方を残し、スコアを合算する
//
// カテゴリでの絞り込みは上位 limit 件に切り詰めた後に行うため、件数が limit を下回ることがある。
func RankPopular(set *model.CandidateSet, accept model.PinFilter, categories map[string]struct{}, limit int) []model.MapPin {
	if set == nil {
		return nil
	}
	if accept == nil {
		accept = model.AcceptAll
	}

	ranked := make([]*scoredPin, 0, set.Len())
	byKey := make(map[string]*scoredPin, set.Len())
	byCoord := make(map[string]*scoredPin, set.Len())
	claimed := make(map[string]struct{})

	// 内部ロケーション（作成ロケーション → 保存リンクの順）
	for _, src := range []model.PinSource{model.SourceAuthoredLocation, model.SourceSavedLocation} {
		for _, candidate := range set.Sources[src] {
			pin := candidate.Pin
			if !helper.ValidCoordinates(pin.Coordinates) {
				continue
			}
			if pin.GooglePlaceID != "" {
				claimed[pin.GooglePlaceID] = struct{}{}
			}
			if !accept(&pin) {
				continue
			}
			coordKey := helper.CoordinateKey(pin.Coordinates)
			if _, ok := byCoord[coordKey]; ok {
				continue
			}
			key := pin.DedupKey()
			if _, ok := byKey[key]; ok {
				continue
			}

			entry := &scoredPin{
				pin:   pin,
				score: float64(set.SaveCounts[pin.ID]) + float64(set.PostCounts[pin.ID])*model.PostScoreBonus,
			}
			byKey[key] = entry
			byCoord[coordKey] = entry
			ranked = append(ranked, entry)
		}
	}

	// saved_placesはplace_idごとにまとめる
	groups, order := groupSavedPlaces(set.Sources[model.SourceSavedPlace])
	for _, placeID := range order {
		if _, ok := claimed[placeID]; ok {
			continue
		}
		if _, ok := byKey[placeID]; ok {
			continue
		}
		group := groups[placeID]
		pin := group.representative
		if !accept(&pin) {
			continue
		}

		coordKey := helper.CoordinateKey(pin.Coordinates)
		if existing, ok := byCoord[coordKey]; ok {
			if !existing.fromSavedPlace {
				continue
			}
			existing.score += float64(group.count)
			if model.GetCategoryPriority(pin.Category) > model.GetCategoryPriority(existing.pin.Category) {
				existing.pin = pin
			}
			byKey[placeID] = existing
			continue
		}

		entry := &scoredPin{pin: pin, score: float64(group.count), fromSavedPlace: true}
		byKey[placeID] = entry
		byCoord[coordKey] = entry
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]model.MapPin, 0, len(ranked))
	for _, entry := range ranked {
		if !helper.MatchesCategories(entry.pin.Category, categories) {
			continue
		}
		pin := entry.pin
		score := entry.score
		pin.RecommendationScore = &score
		pin.IsRecommended = score > 0
		result = append(result, pin)
	}
	return result
}

type savedPlaceGroup struct {
	representative model.MapPin
	count          int
}

// groupSavedPlaces は同じplace_idの行をまとめる（出現順を維持）
func groupSavedPlaces(candidates []model.PinCandidate) (map[string]*savedPlaceGroup, []string) {
	groups := make(map[string]*savedPlaceGroup, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		pin := candidate.Pin
		if !helper.ValidCoordinates(pin.Coordinates) {
			continue
		}
		key := pin.DedupKey()
		if group, ok := groups[key]; ok {
			group.count++
			continue
		}
		groups[key] = &savedPlaceGroup{representative: pin, count: 1}
		order = append(order, key)
	}
	return groups, order
}
