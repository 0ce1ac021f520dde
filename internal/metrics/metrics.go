package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalyzeRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xengage_analyze_runs_total",
		Help: "Total engager analysis runs",
	})
	AnalyzeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xengage_analyze_errors_total",
		Help: "Total engager analysis errors",
	})
	AnalyzeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xengage_analyze_duration_seconds",
		Help:    "Engager analysis duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	DispatchRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xengage_dispatch_runs_total",
		Help: "Total action batch dispatches",
	})
	ActionsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xengage_actions_executed_total",
		Help: "Executed actions by type and outcome",
	}, []string{"type", "outcome"})
	ReconcileTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xengage_reconcile_ticks_total",
		Help: "Total reconciliation ticks",
	})
	ReconcileErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xengage_reconcile_errors_total",
		Help: "Total reconciliation tick errors",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xengage_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xengage_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(AnalyzeRuns, AnalyzeErrors, AnalyzeDuration,
		DispatchRuns, ActionsExecuted, ReconcileTicks, ReconcileErrors,
		CommandRuns, CommandErrors)
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

// ObserveAnalyzeDuration records one analysis duration.
func ObserveAnalyzeDuration(start time.Time) {
	AnalyzeDuration.Observe(time.Since(start).Seconds())
}

// IncActionExecuted increments the per-type executed counter.
func IncActionExecuted(typ string, success bool) {
	outcome := "success"
	if !success { outcome = "failure" }
	ActionsExecuted.WithLabelValues(typ, outcome).Inc()
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
