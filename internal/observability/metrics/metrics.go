package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

func outcome(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

var (
	once          sync.Once
	metricsRouter *chi.Mux

	defaultHistogramBucketsSeconds = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of incoming http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "route", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	pollerLastSuccessGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poller_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each poller.",
		},
		[]string{"type"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	// add a counter for the number of errors from the fail to push a call into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending calls to the queue",
		},
	)

	pendingCallsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_deferred_calls",
			Help: "Number of deferred calls waiting for a result",
		},
	)

	callResultCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deferred_call_results_total",
			Help: "Deferred call results split by method and outcome",
		},
		[]string{"method", "status"},
	)

	vaultsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaults_count",
			Help: "Number of vaults recorded by the factory",
		},
	)

	hostedVaultsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hosted_vaults",
			Help: "Number of vaults hosted by this process split by state",
		},
		[]string{"state"},
	)

	vaultsCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaults_created_total",
			Help: "Number of vault records inserted by the factory",
		},
	)

	deploymentFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_deployment_failures_total",
			Help: "Number of vault deployments that failed after the vault was recorded",
		},
		[]string{"stage"},
	)

	vaultTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_state_transitions_total",
			Help: "Vault state transitions split by previous and new state",
		},
		[]string{"from", "to"},
	)

	priceUpdateCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_price_updates_total",
			Help: "Price updates delivered to vaults split by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestDurationHistogram,
		pollerDurationHistogram,
		pollerLastSuccessGauge,
		dbLatency,
		queueSendErrorCounter,
		pendingCallsGauge,
		callResultCounter,
		vaultsGauge,
		hostedVaultsGauge,
		vaultsCreatedCounter,
		deploymentFailureCounter,
		vaultTransitionCounter,
		priceUpdateCounter,
	)
}

// Init starts the metrics server. Subsequent calls are no-ops.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	dbLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}

func RecordPendingCalls(count int) {
	pendingCallsGauge.Set(float64(count))
}

func RecordCallResult(method string, failure bool) {
	callResultCounter.WithLabelValues(method, outcome(failure).String()).Inc()
}

func RecordVaultsCount(count int64) {
	vaultsGauge.Set(float64(count))
}

func RecordHostedVaults(state string, count int) {
	hostedVaultsGauge.WithLabelValues(state).Set(float64(count))
}

func IncVaultsCreated() {
	vaultsCreatedCounter.Inc()
}

func IncDeploymentFailures(stage string) {
	deploymentFailureCounter.WithLabelValues(stage).Inc()
}

func RecordVaultTransition(from, to string) {
	vaultTransitionCounter.WithLabelValues(from, to).Inc()
}

func RecordPriceUpdate(failure bool) {
	priceUpdateCounter.WithLabelValues(outcome(failure).String()).Inc()
}

// StartHttpRequestDurationTimer starts a timer to measure incoming request duration.
func StartHttpRequestDurationTimer(method, route string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(
			method,
			route,
			strconv.Itoa(statusCode),
		).Observe(duration)
	}
}
