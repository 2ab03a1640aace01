package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/infrastructure/metrics"
)

// ErrSessionNotFound 指定したセッションが存在しない
var ErrSessionNotFound = errors.New("セッションが見つかりません")

// MapSession ユーザーに紐づく地図表示セッション
type MapSession struct {
	ID      string
	UserID  string
	UseCase MapLocationsUseCase
}

// MapSessionFactory セッションごとのMapLocationsUseCaseを作成する
type MapSessionFactory func(userID string, params *model.FetchParams) (MapLocationsUseCase, error)

// MapSessionManager 地図表示セッションを管理する
// 最後のアクセスから idleTTL が経過したセッションは破棄され、UseCaseも閉じられる
type MapSessionManager struct {
	factory MapSessionFactory
	metrics *metrics.PinMetrics
	logger  *zap.Logger
	mu      sync.Mutex // 取得時の延長と削除の競合を防ぐ
	store   *gocache.Cache
}

// NewMapSessionManager MapSessionManagerを作成
// idleTTLが0以下の場合は model.SessionIdleTTL を使う
func NewMapSessionManager(factory MapSessionFactory, idleTTL time.Duration, m *metrics.PinMetrics, logger *zap.Logger) *MapSessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = model.SessionIdleTTL
	}
	manager := &MapSessionManager{
		factory: factory,
		metrics: m,
		logger:  logger,
		store:   gocache.New(idleTTL, sweepInterval(idleTTL)),
	}
	manager.store.OnEvicted(manager.onEvicted)
	return manager
}

// sweepInterval 期限切れセッションの回収間隔
func sweepInterval(idleTTL time.Duration) time.Duration {
	interval := idleTTL / 2
	if interval > time.Minute {
		return time.Minute
	}
	if interval < time.Millisecond {
		return time.Millisecond
	}
	return interval
}

// NewMapSessionFactory MapLocationsConfigを雛形にしたファクトリを作成
func NewMapSessionFactory(base MapLocationsConfig) MapSessionFactory {
	return func(userID string, params *model.FetchParams) (MapLocationsUseCase, error) {
		cfg := base
		cfg.UserID = userID
		cfg.Params = params
		return NewMapLocationsUseCase(cfg)
	}
}

// Create セッションを開始する
func (m *MapSessionManager) Create(userID string, params *model.FetchParams) (*MapSession, error) {
	uc, err := m.factory(userID, params)
	if err != nil {
		return nil, fmt.Errorf("セッションの作成失敗: %w", err)
	}
	session := &MapSession{
		ID:      uuid.New().String(),
		UserID:  userID,
		UseCase: uc,
	}

	m.store.SetDefault(session.ID, session)
	m.metrics.SessionCount(m.store.ItemCount())

	m.logger.Info("🆕 地図セッションを開始しました", zap.String("session_id", session.ID), zap.String("user_id", userID))
	return session, nil
}

// Get ユーザーのセッションを取得し、有効期限を延長する（他人のセッションは見つからない扱い）
func (m *MapSessionManager) Get(userID, id string) (*MapSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	m.store.SetDefault(id, session)
	return session, nil
}

// Delete セッションを終了する
func (m *MapSessionManager) Delete(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(userID, id); err != nil {
		return err
	}
	// UseCaseはOnEvictedで閉じる
	m.store.Delete(id)
	return nil
}

// CloseAll 全セッションを終了する（シャットダウン時）
func (m *MapSessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.DeleteExpired()
	items := m.store.Items()
	m.store.Flush()
	for _, item := range items {
		if session, ok := item.Object.(*MapSession); ok {
			session.UseCase.Close()
		}
	}
	m.metrics.SessionCount(0)
}

// Count 保持しているセッション数（回収前の期限切れセッションを含む）
func (m *MapSessionManager) Count() int {
	return m.store.ItemCount()
}

func (m *MapSessionManager) lookup(userID, id string) (*MapSession, error) {
	v, ok := m.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	session, ok := v.(*MapSession)
	if !ok || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// onEvicted 削除・期限切れのどちらでも呼ばれる
func (m *MapSessionManager) onEvicted(id string, v interface{}) {
	session, ok := v.(*MapSession)
	if !ok {
		return
	}
	session.UseCase.Close()
	m.metrics.SessionCount(m.store.ItemCount())
	m.logger.Info("👋 地図セッションを終了しました", zap.String("session_id", id), zap.String("user_id", session.UserID))
}
