// Package metrics 提供服务的 prometheus 指标
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "upool"

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector 所有指标
type Collector struct {
	registry *prometheus.Registry

	// 业务操作
	OperationsTotal *prometheus.CounterVec

	// 资金池
	PoolsCreated        prometheus.Counter
	ContributionsTotal  *prometheus.CounterVec
	ContributionAmount  *prometheus.CounterVec
	VotesTotal          *prometheus.CounterVec
	MilestonesResolved  *prometheus.CounterVec
	ReleasedAmountTotal prometheus.Counter

	// 注册表
	RegisteredPools prometheus.Gauge
	FeeBalance      prometheus.Gauge

	// 中继
	RelayBatchSize *prometheus.HistogramVec

	// API
	APIRequestsTotal *prometheus.CounterVec
}

// GetCollector 全局单例
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = NewCollector()
	})
	return collector
}

// NewCollector 创建独立注册的指标集合
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine and registry operations by result",
		},
		[]string{"operation", "result"},
	)

	c.PoolsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pools",
		Name:      "created_total",
		Help:      "Pools created through the factory",
	})

	c.ContributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contributions",
			Name:      "total",
			Help:      "Recorded contributions by provenance source",
		},
		[]string{"source"},
	)

	c.ContributionAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contributions",
			Name:      "amount_total",
			Help:      "Sum of recorded contributions in minor units",
		},
		[]string{"currency"},
	)

	c.VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "milestones",
			Name:      "votes_total",
			Help:      "Milestone votes by direction",
		},
		[]string{"direction"},
	)

	c.MilestonesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "milestones",
			Name:      "resolved_total",
			Help:      "Milestones that reached a terminal status",
		},
		[]string{"status"},
	)

	c.ReleasedAmountTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "milestones",
		Name:      "released_amount_total",
		Help:      "Gross amount released on milestone approval",
	})

	c.RegisteredPools = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "pools",
		Help:      "Pools currently listed in the registry",
	})

	c.FeeBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "fee_balance",
		Help:      "Creation fees accrued and not yet withdrawn",
	})

	c.RelayBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "batch_size",
			Help:      "Payment confirmations per relay batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"origin"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	c.registerAll()
	return c
}

func (c *Collector) registerAll() {
	c.registry.MustRegister(
		c.OperationsTotal,
		c.PoolsCreated,
		c.ContributionsTotal,
		c.ContributionAmount,
		c.VotesTotal,
		c.MilestonesResolved,
		c.ReleasedAmountTotal,
		c.RegisteredPools,
		c.FeeBalance,
		c.RelayBatchSize,
		c.APIRequestsTotal,
		collectors.NewGoCollector(),
	)
}

// Handler /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry 底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation 记录一次业务操作结果
func (c *Collector) RecordOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordContribution 记录一笔贡献
func (c *Collector) RecordContribution(source, currency string, amount int64) {
	c.ContributionsTotal.WithLabelValues(source).Inc()
	c.ContributionAmount.WithLabelValues(currency).Add(float64(amount))
}

// RecordVote 记录一次投票
func (c *Collector) RecordVote(inFavor bool) {
	direction := "against"
	if inFavor {
		direction = "for"
	}
	c.VotesTotal.WithLabelValues(direction).Inc()
}

// RecordMilestoneResolved 记录里程碑进入终态
func (c *Collector) RecordMilestoneResolved(status string, released int64) {
	c.MilestonesResolved.WithLabelValues(status).Inc()
	if released > 0 {
		c.ReleasedAmountTotal.Add(float64(released))
	}
}

// UpdateRegistry 更新注册表指标
func (c *Collector) UpdateRegistry(pools int, feeBalance int64) {
	c.RegisteredPools.Set(float64(pools))
	c.FeeBalance.Set(float64(feeBalance))
}

// RecordRelayBatch 记录中继批次大小
func (c *Collector) RecordRelayBatch(origin string, size int) {
	c.RelayBatchSize.WithLabelValues(origin).Observe(float64(size))
}

// RecordAPIRequest 记录一次 HTTP 请求
func (c *Collector) RecordAPIRequest(method, route, status string) {
	c.APIRequestsTotal.WithLabelValues(method, route, status).Inc()
}
