package helper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"Spotmap-App/internal/domain/model"
)

// ParseBBox "min_lng,min_lat,max_lng,max_lat" 形式の文字列を境界ボックスに変換
func ParseBBox(bbox string) (*model.MapBounds, error) {
	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		return nil, fmt.Errorf("bboxは4つの座標が必要です: min_lng,min_lat,max_lng,max_lat")
	}

	values := make([]float64, 4)
	for i, c := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, fmt.Errorf("bboxの座標値が不正です(%s): %w", c, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bboxの座標値が有限の数値ではありません(%s)", c)
		}
		values[i] = v
	}

	bound := orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}
	bounds := BoundsFromOrb(bound)
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return bounds, nil
}

// BoundsFromOrb orb.Bound を model.MapBounds に変換
func BoundsFromOrb(b orb.Bound) *model.MapBounds {
	return &model.MapBounds{
		North: b.Max.Lat(),
		South: b.Min.Lat(),
		East:  b.Max.Lon(),
		West:  b.Min.Lon(),
	}
}

// BoundsWKT 境界ボックスのWKT表現（ログ出力用）
func BoundsWKT(b *model.MapBounds) string {
	if b == nil {
		return ""
	}
	return wkt.MarshalString(b.Bound().ToPolygon())
}

// FormatBounds 境界ボックスを指定桁数で文字列化（キャッシュキー用）
func FormatBounds(b *model.MapBounds, precision int) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%.*f,%.*f,%.*f,%.*f",
		precision, b.North, precision, b.South, precision, b.East, precision, b.West)
}
