package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_generation_runs_total",
		Help: "Total generation requests by intent",
	}, []string{"intent"})
	GenerationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_generation_errors_total",
		Help: "Total generation failures by intent",
	}, []string{"intent"})
	ProviderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plume_provider_duration_seconds",
		Help:    "Provider call duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	QuotaDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_quota_denials_total",
		Help: "Total quota denials by feature",
	}, []string{"feature"})
	FeedbackEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_feedback_events_total",
		Help: "Total feedback events by kind",
	}, []string{"kind"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plume_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(GenerationRuns, GenerationErrors, ProviderDuration, QuotaDenials, FeedbackEvents, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveProviderDuration records one provider call duration.
func ObserveProviderDuration(start time.Time) {
	ProviderDuration.Observe(time.Since(start).Seconds())
}

// IncGeneration counts a generation attempt for an intent.
func IncGeneration(intent string) { GenerationRuns.WithLabelValues(intent).Inc() }

// IncGenerationError counts a generation failure for an intent.
func IncGenerationError(intent string) { GenerationErrors.WithLabelValues(intent).Inc() }

// IncQuotaDenial counts a quota denial for a feature.
func IncQuotaDenial(feature string) { QuotaDenials.WithLabelValues(feature).Inc() }

// IncFeedback counts a feedback event ("rating" or "copy").
func IncFeedback(kind string) { FeedbackEvents.WithLabelValues(kind).Inc() }

// IncCommandRun counts one CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts one CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
