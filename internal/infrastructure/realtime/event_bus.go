package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"Spotmap-App/internal/domain/model"
	"Spotmap-App/internal/infrastructure/metrics"
)

// Event バス上を流れる変更通知
type Event struct {
	Name    string
	Payload []byte
}

// EventBus イベント名をトピックとするプロセス内のイベントバス
type EventBus struct {
	pubsub  *gochannel.GoChannel
	known   map[string]struct{}
	logger  *zap.Logger
	metrics *metrics.PinMetrics
}

// NewEventBus イベントバスを作成
func NewEventBus(logger *zap.Logger, m *metrics.PinMetrics) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]struct{})
	for _, name := range model.GetRealtimeEvents() {
		known[name] = struct{}{}
	}
	return &EventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, NewZapLoggerAdapter(logger.Named("watermill"))),
		known:   known,
		logger:  logger,
		metrics: m,
	}
}

// Publish イベントを発行する（購読者がいなければ破棄される）
func (b *EventBus) Publish(ctx context.Context, event string, payload []byte) error {
	if _, ok := b.known[event]; !ok {
		return fmt.Errorf("未登録のイベントです: %s", event)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(event, msg); err != nil {
		return fmt.Errorf("イベント %s の発行失敗: %w", event, err)
	}
	b.metrics.RealtimeEvent(event)
	b.logger.Debug("📣 リアルタイムイベントを発行しました", zap.String("event", event))
	return nil
}

// Subscribe 指定したイベントを1本のチャネルにまとめて購読する
// ctx がキャンセルされると購読を解除してチャネルを閉じる
func (b *EventBus) Subscribe(ctx context.Context, events ...string) (<-chan Event, error) {
	if len(events) == 0 {
		events = model.GetRealtimeEvents()
	}

	out := make(chan Event)
	var wg sync.WaitGroup
	for _, name := range events {
		if _, ok := b.known[name]; !ok {
			return nil, fmt.Errorf("未登録のイベントです: %s", name)
		}
		messages, err := b.pubsub.Subscribe(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("イベント %s の購読失敗: %w", name, err)
		}

		wg.Add(1)
		go func(name string, messages <-chan *message.Message) {
			defer wg.Done()
			for msg := range messages {
				select {
				case out <- Event{Name: name, Payload: msg.Payload}:
					msg.Ack()
				case <-ctx.Done():
					msg.Nack()
					return
				}
			}
		}(name, messages)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// Close バスを閉じる
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}
