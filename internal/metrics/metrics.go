package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus. promauto регистрирует их в default registry,
// отдаются через /metrics.

var (
	// ClicksRecordedTotal общее количество записанных кликов
	ClicksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpay_clicks_recorded_total",
			Help: "Total number of recorded clicks",
		},
		[]string{"unique", "flagged"},
	)

	// RevenuePostedTotal сумма выручки, проведённой по леджерам (микроединицы)
	RevenuePostedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_revenue_posted_micros_total",
			Help: "Total revenue posted to ledgers in currency micro units",
		},
	)

	// LedgerRetriesTotal количество повторов проведения из-за конфликта CAS
	LedgerRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_ledger_retries_total",
			Help: "Total number of ledger post retries due to stale earned value",
		},
	)

	// LedgerFailuresTotal проведения, не удавшиеся после всех попыток
	LedgerFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_ledger_failures_total",
			Help: "Total number of ledger posts that failed after retries",
		},
	)

	// SessionUpdatesTotal обновления сессий по результату обработки
	SessionUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpay_session_updates_total",
			Help: "Total number of session updates by outcome",
		},
		[]string{"outcome"}, // credited, no_delta, flagged, non_unique
	)

	// CacheHitsTotal попадания в кэш конфигурации ссылок
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_link_cache_hits_total",
			Help: "Total number of link cache hits",
		},
	)

	// CacheMissesTotal промахи кэша конфигурации ссылок
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_link_cache_misses_total",
			Help: "Total number of link cache misses",
		},
	)

	// RateLimitedTotal запросы, отклонённые rate limiter-ом
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_rate_limited_requests_total",
			Help: "Total number of rate-limited requests",
		},
	)

	// ClickQueueDepth текущая глубина очереди асинхронной записи кликов
	ClickQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkpay_click_queue_depth",
			Help: "Number of click events waiting in the async queue",
		},
	)

	// ClickQueueDroppedTotal события, потерянные из-за переполнения очереди
	ClickQueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpay_click_queue_dropped_total",
			Help: "Total number of click events dropped due to a full queue",
		},
	)
)

// RecordClick фиксирует записанный клик с разбивкой по уникальности и фроду
func RecordClick(unique, flagged bool) {
	ClicksRecordedTotal.WithLabelValues(boolLabel(unique), boolLabel(flagged)).Inc()
}

// RecordRevenue фиксирует проведённую дельту выручки
func RecordRevenue(deltaMicros int64) {
	RevenuePostedTotal.Add(float64(deltaMicros))
}

// RecordSessionUpdate фиксирует результат обработки обновления сессии
func RecordSessionUpdate(outcome string) {
	SessionUpdatesTotal.WithLabelValues(outcome).Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
