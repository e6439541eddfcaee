package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	trainingTotal    *prometheus.CounterVec
	trainingDuration prometheus.Histogram

	analysisConfidence *prometheus.GaugeVec
	analysisTotal      *prometheus.CounterVec

	reminderRefresh *prometheus.CounterVec
	remindersDue    prometheus.Gauge

	jobRuns    *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
}

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return true
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// NewMetrics registers every collector on a private registry along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloomly_api_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bloomly_api_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloomly_api_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		trainingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloomly_training_total",
				Help: "Per-plant training attempts by outcome (trained, skipped, errored).",
			},
			[]string{"outcome"},
		),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloomly_training_duration_seconds",
			Help:    "Wall time of a single plant training run.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		analysisConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bloomly_analysis_confidence",
				Help: "Most recent blended confidence written to a care analysis, by recommendation source.",
			},
			[]string{"source"},
		),
		analysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloomly_analysis_total",
				Help: "Care analysis updates by recommendation source.",
			},
			[]string{"source"},
		),
		reminderRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloomly_reminder_refresh_total",
				Help: "Reminder refreshes by outcome.",
			},
			[]string{"outcome"},
		),
		remindersDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloomly_reminders_due_for_notification",
			Help: "Reminders found in the last notification lookahead scan.",
		}),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloomly_job_runs_total",
				Help: "Finished background jobs by type and terminal status.",
			},
			[]string{"job_type", "status"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bloomly_job_queue_depth",
				Help: "Job queue depth by status.",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.trainingTotal, m.trainingDuration,
		m.analysisConfidence, m.analysisTotal,
		m.reminderRefresh, m.remindersDue,
		m.jobRuns, m.queueDepth,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format; a nil Metrics answers 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveTraining(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.trainingTotal.WithLabelValues(outcome).Inc()
	if dur > 0 {
		m.trainingDuration.Observe(dur.Seconds())
	}
}

func (m *Metrics) ObserveAnalysis(source string, confidence float64) {
	if m == nil {
		return
	}
	m.analysisTotal.WithLabelValues(source).Inc()
	m.analysisConfidence.WithLabelValues(source).Set(confidence)
}

func (m *Metrics) ReminderRefreshed(outcome string) {
	if m == nil {
		return
	}
	m.reminderRefresh.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetRemindersDue(n int) {
	if m == nil {
		return
	}
	m.remindersDue.Set(float64(n))
}

func (m *Metrics) JobFinished(jobType, status string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(jobType, status).Inc()
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// StartJobQueueCollector polls job_run counts by status until ctx is done.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	statuses := []string{
		types.JobStatusQueued,
		types.JobStatusRunning,
		types.JobStatusSucceeded,
		types.JobStatusFailed,
		types.JobStatusCanceled,
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectQueueDepth(ctx, log, db, statuses)
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, db *gorm.DB, statuses []string) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.JobRun{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		if log != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
		}
		return
	}
	for _, s := range statuses {
		m.queueDepth.WithLabelValues(s).Set(0)
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = "unknown"
		}
		m.queueDepth.WithLabelValues(status).Set(float64(row.Count))
	}
}
