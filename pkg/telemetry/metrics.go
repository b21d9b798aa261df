package telemetry

import (
	"context"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
)

// Metrics counts Remote ID traffic.
type Metrics struct {
	MessagesSent     prometheus.Counter
	SendErrors       prometheus.Counter
	MessagesReceived prometheus.Counter
	BlocksCorrected  prometheus.Counter
	Unrecoverable    prometheus.Counter
	InvalidRecords   prometheus.Counter
	RecvErrors       prometheus.Counter
	Status           prometheus.Gauge
}

// NewMetrics creates and registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_messages_sent_total",
			Help: "Remote ID messages handed to the radio link",
		}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_send_errors_total",
			Help: "Remote ID messages the radio link failed to send",
		}),
		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_messages_received_total",
			Help: "Remote ID messages received and decoded into a record",
		}),
		BlocksCorrected: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_blocks_corrected_total",
			Help: "Codewords with a corrected single bit error",
		}),
		Unrecoverable: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_unrecoverable_total",
			Help: "Messages discarded for an uncorrectable codeword",
		}),
		InvalidRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_invalid_records_total",
			Help: "Messages which decoded into an invalid record",
		}),
		RecvErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "phoenix_rid_recv_errors_total",
			Help: "Radio link receive failures and malformed messages",
		}),
		Status: f.NewGauge(prometheus.GaugeOpts{
			Name: "phoenix_rid_status",
			Help: "Last broadcast or received status code",
		}),
	}
}

// NewRegistry creates a registry with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsServer serves the metrics of a registry on /metrics.
type MetricsServer struct {
	Addr     string
	Gatherer prometheus.Gatherer
	// Mux receives the /metrics handler, a new one is used if nil.
	Mux *http.ServeMux
}

// Name implements Named.
func (s *MetricsServer) Name() string {
	return "metrics"
}

// Run implements Runnable.
func (s *MetricsServer) Run(ctx context.Context) error {
	mux := s.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("serving metrics on %s", s.Addr)
	err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
