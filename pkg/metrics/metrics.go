// Package metrics содержит счётчики Prometheus для циклов проверки.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Deletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_deletions_total",
			Help: "Удалённые посты по каналам",
		},
		[]string{"channel", "success"},
	)

	UsernameChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_username_changes_total",
			Help: "Попытки смены username по причинам",
		},
		[]string{"reason", "success"},
	)

	CycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_cycle_duration_seconds",
			Help:    "Длительность циклов проверки",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"cycle"},
	)

	LeasesBorrowed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guardian_leases_borrowed",
			Help: "Занятые соединения с дата-центрами",
		},
		[]string{"dc"},
	)

	PolicyConfigErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_policy_config_errors_total",
			Help: "Ошибки настройки зависимостей ограничений",
		},
		[]string{"kind"},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Deletions,
		UsernameChanges,
		CycleDuration,
		LeasesBorrowed,
		PolicyConfigErrors,
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
