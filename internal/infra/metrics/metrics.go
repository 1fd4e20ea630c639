package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Длительность обработки HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Количество HTTP запросов",
	}, []string{"method", "route", "status"})

	DiscoverBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "discover_build_seconds",
		Help:    "Время построения витрин Discover",
		Buckets: prometheus.DefBuckets,
	})

	DiscoverDegradedFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discover_degraded_fetches_total",
		Help: "Вспомогательные чтения Discover, заменённые значениями по умолчанию",
	}, []string{"source"})

	StoreRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_rejections_total",
		Help: "Отказы хранимых процедур",
	}, []string{"procedure"})

	WritesThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "writes_throttled_total",
		Help: "Пишущие запросы, отклонённые лимитом",
	})

	ActivityEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_events_total",
		Help: "События активности по стадиям обработки",
	}, []string{"kind", "stage"})

	DBBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "db_breaker_state",
		Help: "Состояние circuit breaker: 0 closed, 1 half-open, 2 open",
	}, []string{"name"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		HTTPRequestDuration,
		HTTPRequestsTotal,
		DiscoverBuildSeconds,
		DiscoverDegradedFetches,
		StoreRejections,
		WritesThrottled,
		ActivityEventsTotal,
		DBBreakerState,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveHTTPRequest записывает метрики обработанного HTTP запроса.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// IncStoreRejection увеличивает счётчик отказов процедуры.
func IncStoreRejection(procedure string) {
	StoreRejections.WithLabelValues(procedure).Inc()
}

// IncActivity увеличивает счётчик событий активности на стадии обработки.
func IncActivity(kind, stage string) {
	if kind == "" {
		kind = "unknown"
	}
	ActivityEventsTotal.WithLabelValues(kind, stage).Inc()
}
