// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// AuthEvents counts authentication and account events by type and outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playtweet_auth_events_total",
		Help: "Total authentication and account events by event type and outcome",
	}, []string{"event", "outcome"})

	// Uploads counts asset uploads by folder and outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playtweet_uploads_total",
		Help: "Total asset uploads by folder and outcome",
	}, []string{"folder", "outcome"})

	// TaskRuns counts background job executions by job name and outcome.
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playtweet_task_runs_total",
		Help: "Total background job runs by job and outcome",
	}, []string{"job", "outcome"})
)

// Outcome maps a success flag to a label value.
func Outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
