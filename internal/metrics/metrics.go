// Package metrics は静的ファイルサーバーの Prometheus メトリクスを提供します
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiger/internal/workerpool"
)

const namespace = "tiger"

// Metrics はサーバーのメトリクスをまとめたもの。
// nil の *Metrics に対する記録は何もしない。
type Metrics struct {
	registry *prometheus.Registry

	connectionsAccepted prometheus.Counter
	acceptErrors        prometheus.Counter
	submitErrors        prometheus.Counter
	responses           *prometheus.CounterVec
	aborted             *prometheus.CounterVec
	duration            prometheus.Histogram
}

// New は専用のレジストリにメトリクスを登録して返す
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		connectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acceptor",
			Name:      "connections_total",
			Help:      "Total number of accepted connections",
		}),
		acceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acceptor",
			Name:      "errors_total",
			Help:      "Total number of failed accept calls",
		}),
		submitErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acceptor",
			Name:      "submit_errors_total",
			Help:      "Total number of connections that could not be queued",
		}),
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "responses_total",
			Help:      "Total number of responses by status line and page",
		}, []string{"status", "page"}),
		aborted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "aborted_total",
			Help:      "Total number of connections closed without a response",
		}, []string{"reason"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "duration_seconds",
			Help:      "Time from accept to connection close",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RegisterPool はワーカープールの状態をゲージとして登録する
func (m *Metrics) RegisterPool(pool *workerpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	factory := promauto.With(m.registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "workers",
		Help:      "Number of workers in the pool",
	}, func() float64 { return float64(pool.Size()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "queue_depth",
		Help:      "Number of tasks waiting for a worker",
	}, func() float64 { return float64(pool.Stats().Queued) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "busy_workers",
		Help:      "Number of workers currently running a task",
	}, func() float64 { return float64(pool.Stats().Busy) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "completed_total",
		Help:      "Total number of tasks run to completion",
	}, func() float64 { return float64(pool.Stats().Completed) })
}

// ConnectionAccepted は接続の受け付けを記録する
func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

// AcceptError は accept の失敗を記録する
func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

// SubmitError はキューへの投入の失敗を記録する
func (m *Metrics) SubmitError() {
	if m == nil {
		return
	}
	m.submitErrors.Inc()
}

// Response は送信したレスポンスを記録する。
// status はステータスライン、page は本文の種類（file / not_found / forbidden）。
func (m *Metrics) Response(status, page string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(status, page).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Aborted はレスポンスを返さずに閉じた接続を記録する
func (m *Metrics) Aborted(reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.aborted.WithLabelValues(reason).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Registry はメトリクスのレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler はメトリクスを公開する http.Handler を返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
