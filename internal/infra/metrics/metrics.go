package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Длительность запросов к бэкенду планировщика",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	BackendRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_request_total",
		Help: "Количество запросов к бэкенду планировщика",
	}, []string{"operation", "status"})

	PollCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycles_total",
		Help: "Циклы фонового опроса по ресурсам",
	}, []string{"resource", "status"})

	StaleResponsesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stale_responses_dropped_total",
		Help: "Опоздавшие ответы опроса, отброшенные по счётчику поколений",
	}, []string{"resource"})

	UnauthorizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unauthorized_total",
		Help: "Сбросы сессии после 401 от бэкенда",
	})

	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "post_mutations_total",
		Help: "Мутации коллекции постов",
	}, []string{"operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BackendRequestDuration,
		BackendRequestTotal,
		PollCyclesTotal,
		StaleResponsesDropped,
		UnauthorizedTotal,
		MutationsTotal,
	)
}

// ObserveBackendRequest записывает длительность и статус запроса к бэкенду.
func ObserveBackendRequest(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	BackendRequestDuration.WithLabelValues(operation, status).Observe(duration)
	BackendRequestTotal.WithLabelValues(operation, status).Inc()
}

// IncPollCycle увеличивает счётчик циклов опроса ресурса.
func IncPollCycle(resource string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PollCyclesTotal.WithLabelValues(resource, status).Inc()
}

// IncStaleDrop отмечает отброшенный устаревший ответ.
func IncStaleDrop(resource string) {
	StaleResponsesDropped.WithLabelValues(resource).Inc()
}

// IncUnauthorized отмечает сброс сессии по 401.
func IncUnauthorized() {
	UnauthorizedTotal.Inc()
}

// IncMutation отмечает мутацию коллекции постов.
func IncMutation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MutationsTotal.WithLabelValues(operation, status).Inc()
}
