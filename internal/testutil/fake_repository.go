// Package testutil は集計パイプラインのテスト用のインメモリ実装を提供する
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/domain/repository"
)

// FakeMapDataRepository テーブルの行をメモリ上に持つ MapDataRepository
// 呼び出し回数を記録し、テーブルごとにエラーを差し込める
type FakeMapDataRepository struct {
	mu sync.Mutex

	Follows     []model.FollowRecord
	Shares      []model.LocationShareRecord
	Locations   []model.LocationRecord
	SavedLinks  []model.UserSavedLocationRecord
	SavedPlaces []model.SavedPlaceRecord
	Profiles    []model.ProfileRecord

	Errors map[string]error
	Calls  map[string]int

	// 各呼び出しの前に実行される（同時実行の検証用）
	BeforeCall func(method string)
}

func NewFakeMapDataRepository() *FakeMapDataRepository {
	return &FakeMapDataRepository{
		Errors: make(map[string]error),
		Calls:  make(map[string]int),
	}
}

func (f *FakeMapDataRepository) record(method string) error {
	if f.BeforeCall != nil {
		f.BeforeCall(method)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Errors[method]
}

// CallCount 指定メソッドの呼び出し回数
func (f *FakeMapDataRepository) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

// TotalCalls 全メソッドの呼び出し回数
func (f *FakeMapDataRepository) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.Calls {
		total += n
	}
	return total
}

func (f *FakeMapDataRepository) GetFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	if err := f.record("GetFollowingIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for _, follow := range f.Follows {
		if follow.FollowerID == userID {
			ids = append(ids, follow.FollowingID)
		}
	}
	return ids, nil
}

func (f *FakeMapDataRepository) GetActiveShares(ctx context.Context, now time.Time, bounds *model.MapBounds) ([]model.LocationShareRecord, error) {
	if err := f.record("GetActiveShares"); err != nil {
		return nil, err
	}
	var shares []model.LocationShareRecord
	for _, share := range f.Shares {
		if share.ExpiresAt.After(now) {
			shares = append(shares, share)
		}
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].CreatedAt.After(shares[j].CreatedAt)
	})
	return shares, nil
}

func (f *FakeMapDataRepository) GetLocations(ctx context.Context, q repository.SourceQuery) ([]model.LocationRecord, error) {
	if err := f.record("GetLocations"); err != nil {
		return nil, err
	}
	var rows []model.LocationRecord
	for _, loc := range f.Locations {
		if matchUser(q.UserIDs, loc.CreatedBy) {
			rows = append(rows, loc)
		}
	}
	return rows, nil
}

func (f *FakeMapDataRepository) GetUserSavedLocations(ctx context.Context, q repository.SourceQuery) ([]model.UserSavedLocationRecord, error) {
	if err := f.record("GetUserSavedLocations"); err != nil {
		return nil, err
	}
	var rows []model.UserSavedLocationRecord
	for _, link := range f.SavedLinks {
		if matchUser(q.UserIDs, link.UserID) && matchTag(q.SaveTags, link.SaveTag) {
			rows = append(rows, link)
		}
	}
	return rows, nil
}

func (f *FakeMapDataRepository) GetSavedPlaces(ctx context.Context, q repository.SourceQuery) ([]model.SavedPlaceRecord, error) {
	if err := f.record("GetSavedPlaces"); err != nil {
		return nil, err
	}
	var rows []model.SavedPlaceRecord
	for _, place := range f.SavedPlaces {
		if matchUser(q.UserIDs, place.UserID) && matchTag(q.SaveTags, place.SaveTag) {
			rows = append(rows, place)
		}
	}
	return rows, nil
}

func (f *FakeMapDataRepository) GetProfilesByIDs(ctx context.Context, ids []string) ([]model.ProfileRecord, error) {
	if err := f.record("GetProfilesByIDs"); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var rows []model.ProfileRecord
	for _, p := range f.Profiles {
		if _, ok := wanted[p.ID]; ok {
			rows = append(rows, p)
		}
	}
	return rows, nil
}

// FakeActivityRepository 投稿をメモリ上に持つ ActivityRepository
type FakeActivityRepository struct {
	mu    sync.Mutex
	Posts []model.PostRecord
	Err   error
	Calls map[string]int
}

func NewFakeActivityRepository(posts ...model.PostRecord) *FakeActivityRepository {
	return &FakeActivityRepository{Posts: posts, Calls: make(map[string]int)}
}

// CallCount 指定メソッドの呼び出し回数
func (f *FakeActivityRepository) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeActivityRepository) GetRecentPostsByLocationIDs(ctx context.Context, locationIDs []string, perLocation int) ([]model.PostRecord, error) {
	f.mu.Lock()
	f.Calls["GetRecentPostsByLocationIDs"]++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	wanted := make(map[string]struct{}, len(locationIDs))
	for _, id := range locationIDs {
		wanted[id] = struct{}{}
	}
	var posts []model.PostRecord
	for _, p := range f.Posts {
		if _, ok := wanted[p.LocationID]; ok {
			posts = append(posts, p)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if perLocation <= 0 {
		return posts, nil
	}
	counts := make(map[string]int)
	limited := posts[:0]
	for _, p := range posts {
		if counts[p.LocationID] >= perLocation {
			continue
		}
		counts[p.LocationID]++
		limited = append(limited, p)
	}
	return limited, nil
}

func (f *FakeActivityRepository) CountPostsByLocationIDs(ctx context.Context, locationIDs []string) (map[string]int, error) {
	f.mu.Lock()
	f.Calls["CountPostsByLocationIDs"]++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	wanted := make(map[string]struct{}, len(locationIDs))
	for _, id := range locationIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[string]int)
	for _, p := range f.Posts {
		if _, ok := wanted[p.LocationID]; ok {
			counts[p.LocationID]++
		}
	}
	return counts, nil
}

func matchUser(userIDs []string, userID string) bool {
	if userIDs == nil {
		return true
	}
	for _, id := range userIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func matchTag(tags []string, tag *string) bool {
	if len(tags) == 0 {
		return true
	}
	if tag == nil {
		return false
	}
	for _, t := range tags {
		if t == *tag {
			return true
		}
	}
	return false
}
