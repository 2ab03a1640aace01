package helper

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"Spotmap-App/internal/domain/model"
)

// externalPlaceIDPattern はGoogle Places APIのプレイスIDの接頭辞
var externalPlaceIDPattern = regexp.MustCompile(`^(ChIJ|GhIJ|Ei)`)

// postalSuffixPattern は都市名末尾の郵便区番号（"Dublin 2", "Dublin D02" など）
var postalSuffixPattern = regexp.MustCompile(`\s+[A-Za-z]?\d+[A-Za-z]?$`)

// districtToCity は地区・行政区名から親の都市名へのマッピング（小文字キー）
var districtToCity = map[string]string{
	"ranelagh":       "Dublin",
	"rathmines":      "Dublin",
	"temple bar":     "Dublin",
	"dún laoghaire":  "Dublin",
	"dun laoghaire":  "Dublin",
	"manhattan":      "New York",
	"brooklyn":       "New York",
	"queens":         "New York",
	"the bronx":      "New York",
	"staten island":  "New York",
	"shibuya":        "Tokyo",
	"shinjuku":       "Tokyo",
	"minato":         "Tokyo",
	"westminster":    "London",
	"camden":         "London",
	"hackney":        "London",
	"kreuzberg":      "Berlin",
	"mitte":          "Berlin",
	"le marais":      "Paris",
	"montmartre":     "Paris",
	"gràcia":         "Barcelona",
	"gracia":         "Barcelona",
	"eixample":       "Barcelona",
	"nakagyo-ku":     "Kyoto",
	"shimogyo-ku":    "Kyoto",
	"higashiyama-ku": "Kyoto",
}

// NormalizeCategory はカテゴリを正規化する（未知の値は小文字・トリムのみ）
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return model.CategoryOther
	}
	if normalized, ok := model.CategoryAliasMap[c]; ok {
		return normalized
	}
	return c
}

// NormalizeCategories はカテゴリ一覧を正規化した集合に変換する
func NormalizeCategories(categories []string) map[string]struct{} {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[NormalizeCategory(c)] = struct{}{}
	}
	return set
}

// MatchesCategories はピンのカテゴリが選択中のカテゴリに含まれるか（未選択なら常にtrue）
func MatchesCategories(category string, selected map[string]struct{}) bool {
	if len(selected) == 0 {
		return true
	}
	_, ok := selected[NormalizeCategory(category)]
	return ok
}

// ResolveDisplayCity は地区名などを親の都市名に解決する
func ResolveDisplayCity(city string) string {
	c := strings.TrimSpace(city)
	if c == "" {
		return ""
	}
	if parent, ok := districtToCity[strings.ToLower(c)]; ok {
		return parent
	}
	return c
}

// CityAliases は都市名と、その都市に解決される地区名の一覧を返す
// 先頭は解決後の都市名。地区名は辞書順
func CityAliases(city string) []string {
	resolved := ResolveDisplayCity(city)
	if resolved == "" {
		return nil
	}
	var districts []string
	for district, parent := range districtToCity {
		if strings.EqualFold(parent, resolved) {
			districts = append(districts, district)
		}
	}
	sort.Strings(districts)
	return append([]string{resolved}, districts...)
}

// stripPostalSuffix は都市名末尾の郵便区番号を除去する
func stripPostalSuffix(city string) string {
	return strings.TrimSpace(postalSuffixPattern.ReplaceAllString(city, ""))
}

// CityMatches は都市名を部分一致（双方向）で比較する
// "Dublin" と "Dublin 2" は一致とみなす
func CityMatches(a, b string) bool {
	x := strings.ToLower(stripPostalSuffix(ResolveDisplayCity(a)))
	y := strings.ToLower(stripPostalSuffix(ResolveDisplayCity(b)))
	if x == "" || y == "" {
		return false
	}
	return strings.Contains(x, y) || strings.Contains(y, x)
}

// CityEquals は都市名を完全一致で比較する（popularモードのクライアント側フィルター用）
func CityEquals(a, b string) bool {
	x := strings.ToLower(ResolveDisplayCity(a))
	y := strings.ToLower(ResolveDisplayCity(b))
	return x != "" && x == y
}

// roundCoordinate は座標を指定桁数で丸める（-0は0に揃える）
func roundCoordinate(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

// CoordinateKey は座標を小数点以下6桁で丸めたバケットキーを返す
func CoordinateKey(c model.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f",
		roundCoordinate(c.Lat, model.CoordinatePrecision),
		roundCoordinate(c.Lng, model.CoordinatePrecision))
}

// ValidCoordinates は座標が有限かつ(0,0)でないかチェックする
func ValidCoordinates(c model.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return !(c.Lat == 0 && c.Lng == 0)
}

// IsExternalPlaceID は外部プレイスID（Google Places）か判定する
func IsExternalPlaceID(id string) bool {
	return externalPlaceIDPattern.MatchString(id)
}

// IsInternalLocationID は内部のロケーションUUIDか判定する
func IsInternalLocationID(id string) bool {
	if id == "" || IsExternalPlaceID(id) {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// TruncateSnippet はキャプションを40文字に切り詰める
func TruncateSnippet(caption string) string {
	c := strings.TrimSpace(caption)
	if utf8.RuneCountInString(c) <= model.SnippetMaxLength {
		return c
	}
	runes := []rune(c)
	return string(runes[:model.SnippetMaxLength]) + "..."
}

// StringValue はnil許容文字列を値に変換する
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UniqueStrings は空文字を除いて重複を取り除く（順序は維持）
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
