package wifiscan

import (
	"errors"
	"time"

	"github.com/mdlayher/wifiscan/internal/nlerr"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wifiscan"

// metrics are the Prometheus collectors of one Client.
type metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	discarded       *prometheus.CounterVec
	events          *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	scans           *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of nl80211 requests by command and result",
			},
			[]string{"command", "result"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from sending an nl80211 request to its terminal reply",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"command"},
		),
		discarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_discarded_total",
				Help:      "Total number of netlink replies discarded by the dispatcher",
			},
			[]string{"reason"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of nl80211 multicast events received",
			},
			[]string{"event"},
		),
		eventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Total number of nl80211 multicast events dropped",
			},
			[]string{"reason"},
		),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of scan workflows by final state",
			},
			[]string{"result"},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.requestDuration, err = register(reg, m.requestDuration); err != nil {
		return nil, err
	}
	if m.discarded, err = register(reg, m.discarded); err != nil {
		return nil, err
	}
	if m.events, err = register(reg, m.events); err != nil {
		return nil, err
	}
	if m.eventsDropped, err = register(reg, m.eventsDropped); err != nil {
		return nil, err
	}
	if m.scans, err = register(reg, m.scans); err != nil {
		return nil, err
	}

	return m, nil
}

// register registers c, or returns the equivalent collector registered by
// another Client sharing reg.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

func (m *metrics) observeRequest(command string, start time.Time, err error) {
	m.requests.WithLabelValues(command, resultLabel(err)).Inc()
	m.requestDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

// resultLabel classifies err for the result label of a metric.
func resultLabel(err error) string {
	var kerr *nlerr.KernelError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &kerr):
		return "kernel_error"
	case errors.Is(err, nlerr.ErrTimeout):
		return "timeout"
	case errors.Is(err, nlerr.ErrCanceled):
		return "canceled"
	case errors.Is(err, nlerr.ErrScanAborted):
		return "aborted"
	case errors.Is(err, nlerr.ErrScanInProgress):
		return "in_progress"
	default:
		return "error"
	}
}
