package service

import (
	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

// MergeCandidates は候補を SourcePriority の順にマージして重複を取り除く
//
// 重複排除は2段階で行う:
//   - 座標バケット（小数点以下6桁）がすでに使われていれば捨てる
//   - 重複排除キー（googlePlaceId、なければID）がすでにあれば捨てる
//
// 先に並ぶ取得元の候補が残る。categories が空でなければ、マージ前にカテゴリで絞り込む。
func MergeCandidates(set *model.CandidateSet, accept model.PinFilter, categories map[string]struct{}) []model.MapPin {
	if set == nil {
		return nil
	}
	if accept == nil {
		accept = model.AcceptAll
	}

	merged := make([]model.MapPin, 0, set.Len())
	usedKeys := make(map[string]struct{}, set.Len())
	usedCoords := make(map[string]struct{}, set.Len())

	for _, candidate := range set.Ordered() {
		pin := candidate.Pin
		if !helper.ValidCoordinates(pin.Coordinates) {
			continue
		}
		if !helper.MatchesCategories(pin.Category, categories) {
			continue
		}
		if !accept(&pin) {
			continue
		}

		coordKey := helper.CoordinateKey(pin.Coordinates)
		if _, ok := usedCoords[coordKey]; ok {
			continue
		}
		key := pin.DedupKey()
		if _, ok := usedKeys[key]; ok {
			continue
		}

		usedKeys[key] = struct{}{}
		usedCoords[coordKey] = struct{}{}
		merged = append(merged, pin)
	}

	return merged
}

// FilterValidCoordinates は座標が不正なピンを取り除く
func FilterValidCoordinates(pins []model.MapPin) []model.MapPin {
	valid := pins[:0:0]
	for _, pin := range pins {
		if helper.ValidCoordinates(pin.Coordinates) {
			valid = append(valid, pin)
		}
	}
	return valid
}
