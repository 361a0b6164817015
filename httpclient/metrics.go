package httpclient

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/sony/gobreaker"
)

// MetricsPrefix starts the name of every collector this package registers.
const MetricsPrefix = "vmc_http_"

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vmc_http_request_duration_seconds",
			Help:    "Duration of control plane HTTP requests in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vmc_http_requests_total",
			Help: "Total number of control plane HTTP requests by status code",
		},
		[]string{"method", "code"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vmc_http_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"host"},
	)
)

// recordRequest records a single attempt. code 0 means a transport error.
func recordRequest(method string, code int, d time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	requestDuration.WithLabelValues(method).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, label).Inc()
}

func recordBreakerState(host string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	breakerState.WithLabelValues(host).Set(v)
}

// WriteMetrics writes the families gathered from g whose names start with
// MetricsPrefix, in the Prometheus text exposition format. Pass
// prometheus.DefaultGatherer for the collectors above.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), MetricsPrefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
