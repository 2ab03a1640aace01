package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PinMetrics ピン集計パイプラインのメトリクス
type PinMetrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CoalescedRequests prometheus.Counter
	SourceFailures    *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	FetchErrors       *prometheus.CounterVec
	FetchAborts       *prometheus.CounterVec
	CacheEntries      prometheus.Gauge
	ActiveSessions    prometheus.Gauge
	RealtimeEvents    *prometheus.CounterVec
}

// NewPinMetrics メトリクスを作成して登録する（nilの場合は未登録のレジストリを使う）
func NewPinMetrics(reg prometheus.Registerer) *PinMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &PinMetrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "cache_hits_total",
			Help:      "Number of map pin requests served from the result cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "cache_misses_total",
			Help:      "Number of map pin requests that missed the result cache.",
		}),
		CoalescedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "coalesced_requests_total",
			Help:      "Number of requests that joined an in-flight fetch.",
		}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "source_failures_total",
			Help:      "Sub-source read failures absorbed by the fan-out.",
		}, []string{"mode", "source"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of uncached map pin aggregation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "fetch_errors_total",
			Help:      "Fetch-level aggregation failures.",
		}, []string{"mode"}),
		FetchAborts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "fetch_aborts_total",
			Help:      "Fetches answered with an uncached empty result because the primary source failed.",
		}, []string{"mode"}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "spotmap",
			Subsystem: "pins",
			Name:      "cache_entries",
			Help:      "Entries held by the result cache, including expired ones not yet reclaimed.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "spotmap",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Map sessions currently held by the session manager.",
		}),
		RealtimeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotmap",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Realtime change events published on the bus.",
		}, []string{"event"}),
	}
}

// ObserveFetch 集計時間を記録
func (m *PinMetrics) ObserveFetch(mode string, started time.Time) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// SourceFailed 取得元の失敗を記録
func (m *PinMetrics) SourceFailed(mode, source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(mode, source).Inc()
}

// CacheLookup キャッシュの命中・非命中を記録
func (m *PinMetrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// Coalesced 実行中の取得に合流した要求を記録
func (m *PinMetrics) Coalesced() {
	if m == nil {
		return
	}
	m.CoalescedRequests.Inc()
}

// FetchFailed 集計全体の失敗を記録
func (m *PinMetrics) FetchFailed(mode string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(mode).Inc()
}

// FetchAborted 主クエリの失敗で空の結果を返した取得を記録
func (m *PinMetrics) FetchAborted(mode string) {
	if m == nil {
		return
	}
	m.FetchAborts.WithLabelValues(mode).Inc()
}

// CacheSize キャッシュのエントリ数を記録
func (m *PinMetrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// SessionCount 有効なセッション数を記録
func (m *PinMetrics) SessionCount(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RealtimeEvent 受信したリアルタイムイベントを記録
func (m *PinMetrics) RealtimeEvent(event string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(event).Inc()
}
