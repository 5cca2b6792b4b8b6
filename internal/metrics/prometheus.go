package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"roleinventory/internal/domain"
)

var (
	CollectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roleinv_collect_duration_seconds",
		Help:    "单次采集耗时",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	CollectErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roleinv_collect_errors_total",
		Help: "采集整体失败次数（服务器发现失败等）",
	})

	GraphErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roleinv_graph_errors_total",
		Help: "写入 Neo4j 失败次数",
	})

	Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roleinv_failures_total",
		Help: "遍历中被就地恢复的失败数",
	}, []string{"kind", "stage"})

	RiskTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roleinv_risk_total",
		Help: "最近一次采集的风险总分",
	})

	Scopes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roleinv_scopes",
		Help: "最近一次采集的作用域数量",
	})

	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roleinv_last_success_timestamp_seconds",
		Help: "最近一次成功采集的时间",
	})
)

// MustRegister 注册指标，可在 main 中调用。
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(CollectDuration, CollectErrors, GraphErrors, Failures, RiskTotal, Scopes, LastSuccess)
}

// ObserveRun 记录一次成功采集。
func ObserveRun(elapsed time.Duration, failures []domain.Failure, total, scopes int, at time.Time) {
	CollectDuration.Observe(elapsed.Seconds())
	for _, f := range failures {
		Failures.WithLabelValues(string(f.Kind), string(f.Stage)).Inc()
	}
	RiskTotal.Set(float64(total))
	Scopes.Set(float64(scopes))
	LastSuccess.Set(float64(at.Unix()))
}
