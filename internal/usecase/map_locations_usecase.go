package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Spotmap-App/internal/application"
	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/infrastructure/realtime"
)

// MapLocationsUseCase 画面に表示する地図ピンの状態を保持し、条件変更やリアルタイム更新に追従する
type MapLocationsUseCase interface {
	// State 現在の {locations, loading, error}
	State() model.MapPinsState

	// Params 現在のフィルター条件
	Params() model.FetchParams

	// SetParams フィルター条件を変更する（保留中の取得は取り消される）
	SetParams(params *model.FetchParams) error

	// Refetch 現在の条件で取り直す（キャッシュが有効ならキャッシュを使う）
	Refetch()

	// Close タイマーと購読を解放する
	Close()
}

// EventSource リアルタイムイベントの購読元
type EventSource interface {
	Subscribe(ctx context.Context, events ...string) (<-chan realtime.Event, error)
}

// MapLocationsConfig MapLocationsUseCaseの設定
type MapLocationsConfig struct {
	UserID       string
	Params       *model.FetchParams
	Service      application.MapPinsService
	Events       EventSource // nilの場合はリアルタイム更新なし
	TriggerDelay time.Duration
	Debounce     time.Duration
	Logger       *zap.Logger
}

// mapLocationsUseCaseImpl MapLocationsUseCaseの実装
type mapLocationsUseCaseImpl struct {
	userID  string
	service application.MapPinsService
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	trigger  *realtime.Debouncer
	realtime *realtime.Debouncer

	mu     sync.Mutex
	params model.FetchParams
	state  model.MapPinsState
	token  uint64
	closed bool
}

// NewMapLocationsUseCase 初期条件で取得を予約し、リアルタイムイベントの購読を開始する
func NewMapLocationsUseCase(cfg MapLocationsConfig) (MapLocationsUseCase, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("MapPinsServiceが指定されていません")
	}
	if cfg.Params == nil {
		return nil, fmt.Errorf("フィルター条件が指定されていません")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TriggerDelay <= 0 {
		cfg.TriggerDelay = model.CoalesceWindow
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = model.RealtimeDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &mapLocationsUseCaseImpl{
		userID:  cfg.UserID,
		service: cfg.Service,
		logger:  cfg.Logger.With(zap.String("user_id", cfg.UserID)),
		ctx:     ctx,
		cancel:  cancel,
		params:  cloneParams(cfg.Params),
		state:   model.MapPinsState{Locations: []model.MapPin{}},
	}
	u.trigger = realtime.NewDebouncer(cfg.TriggerDelay, u.load)
	u.realtime = realtime.NewDebouncer(cfg.Debounce, u.load)

	if cfg.Events != nil {
		events, err := cfg.Events.Subscribe(ctx, model.GetRealtimeEvents()...)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("リアルタイムイベントの購読失敗: %w", err)
		}
		go u.watch(events)
	}

	u.schedule()
	return u, nil
}

func (u *mapLocationsUseCaseImpl) State() model.MapPinsState {
	u.mu.Lock()
	defer u.mu.Unlock()
	state := u.state
	if u.state.Error != nil {
		msg := *u.state.Error
		state.Error = &msg
	}
	return state
}

func (u *mapLocationsUseCaseImpl) Params() model.FetchParams {
	u.mu.Lock()
	defer u.mu.Unlock()
	return cloneParams(&u.params)
}

func (u *mapLocationsUseCaseImpl) SetParams(params *model.FetchParams) error {
	if params == nil {
		return fmt.Errorf("フィルター条件が指定されていません")
	}
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return fmt.Errorf("セッションは終了しています")
	}
	u.params = cloneParams(params)
	u.mu.Unlock()

	u.schedule()
	return nil
}

func (u *mapLocationsUseCaseImpl) Refetch() {
	u.load()
}

func (u *mapLocationsUseCaseImpl) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	u.token++
	u.mu.Unlock()

	u.trigger.Stop()
	u.realtime.Stop()
	u.cancel()
}

// schedule キャッシュが有効ならすぐに反映し、なければ取得タイマーを（再）始動する
func (u *mapLocationsUseCaseImpl) schedule() {
	if u.applyCached() {
		return
	}
	u.trigger.Trigger()
}

// applyCached 有効なキャッシュがあればloadingを経由せずに状態へ反映する
func (u *mapLocationsUseCaseImpl) applyCached() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return true
	}
	pins, ok := u.service.CachedMapPins(u.userID, &u.params)
	if !ok {
		return false
	}
	// 実行中の取得結果は古い条件のものなので捨てる
	u.token++
	u.state = model.MapPinsState{Locations: pins}
	return true
}

// load 現在の条件で取得し、最新の要求でなければ結果を捨てる
func (u *mapLocationsUseCaseImpl) load() {
	if u.applyCached() {
		return
	}

	u.mu.Lock()
	u.token++
	token := u.token
	params := cloneParams(&u.params)
	u.state.Loading = true
	u.mu.Unlock()

	pins, err := u.service.GetMapPins(u.ctx, u.userID, &params)

	u.mu.Lock()
	defer u.mu.Unlock()
	if token != u.token || u.closed {
		u.logger.Debug("⏭️  古い取得結果を破棄しました", zap.String("mode", string(params.FilterMode)))
		return
	}
	u.state.Loading = false
	if err != nil {
		// 直前の表示は残したままエラーだけを伝える
		msg := err.Error()
		u.state.Error = &msg
		u.logger.Warn("⚠️  地図ピンの取得に失敗しました", zap.Error(err))
		return
	}
	u.state.Locations = pins
	u.state.Error = nil
}

// watch リアルタイムイベントを受けてデバウンス付きで取り直す
func (u *mapLocationsUseCaseImpl) watch(events <-chan realtime.Event) {
	for event := range events {
		u.logger.Debug("🔔 リアルタイムイベント受信", zap.String("event", event.Name))
		u.realtime.Trigger()
	}
}

func cloneParams(p *model.FetchParams) model.FetchParams {
	c := *p
	c.SelectedCategories = append([]string(nil), p.SelectedCategories...)
	c.SelectedFollowedUserIDs = append([]string(nil), p.SelectedFollowedUserIDs...)
	c.SelectedSaveTags = append([]string(nil), p.SelectedSaveTags...)
	if p.MapBounds != nil {
		b := *p.MapBounds
		c.MapBounds = &b
	}
	return c
}
