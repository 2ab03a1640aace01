package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"Spotmap-App/internal/domain/helper"
	"Spotmap-App/internal/domain/model"
)

// Entry キャッシュエントリ
type Entry struct {
	Data      []model.MapPin
	Timestamp time.Time
}

// PinCache 集計結果の短期キャッシュ（プロセス全体で共有）
// 有効期限の判定は注入された時計で行い、go-cacheのjanitorはメモリ回収のみを担う
type PinCache struct {
	store *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

// NewPinCache キャッシュを作成（now が nil の場合は time.Now）
func NewPinCache(ttl time.Duration, now func() time.Time) *PinCache {
	if ttl <= 0 {
		ttl = model.PinCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &PinCache{
		store: gocache.New(ttl*2, ttl*2),
		ttl:   ttl,
		now:   now,
	}
}

// Get 有効なエントリがあればデータを返す
func (c *PinCache) Get(key string) ([]model.MapPin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	entry, ok := raw.(Entry)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.Timestamp) >= c.ttl {
		return nil, false
	}
	return entry.Data, true
}

// Set データを保存する
func (c *PinCache) Set(key string, data []model.MapPin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(key, Entry{Data: data, Timestamp: c.now()}, gocache.DefaultExpiration)
}

// ItemCount 保存中のエントリ数（期限切れ未回収を含む）
func (c *PinCache) ItemCount() int {
	return c.store.ItemCount()
}

// BuildCacheKey 要求ユーザーとフィルター条件一式からキャッシュキーを作成する
// user | mode | カテゴリ（正規化・ソート済み） | 都市 | フォロー中ユーザー | 保存タグ | 境界（小数点以下4桁）
// popularモードは要求ユーザーに依存しないため user を空にして全ユーザーで共有する
func BuildCacheKey(userID string, params *model.FetchParams) string {
	categories := make([]string, 0, len(params.SelectedCategories))
	for c := range helper.NormalizeCategories(params.SelectedCategories) {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	owner := userID
	if !model.IsUserScoped(params.FilterMode) {
		owner = ""
	}

	parts := []string{
		owner,
		string(params.FilterMode),
		strings.Join(categories, ","),
		params.CurrentCity,
		strings.Join(params.SelectedFollowedUserIDs, ","),
		strings.Join(params.SelectedSaveTags, ","),
	}
	if params.MapBounds != nil {
		parts = append(parts, helper.FormatBounds(params.MapBounds, model.CacheBoundsPrecision))
	}
	return strings.Join(parts, "|")
}
