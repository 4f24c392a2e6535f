// Package metrics defines prometheus metric types and the periodic stderr
// reporter that is this generator's only diagnostics channel. Collectors live on
// a struct rather than as package-level promauto vars so a test can construct an
// isolated registry per case.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// wireErrorLog rate-limits wire-error warnings: a server that sends one
// malformed reply often sends many, and every connection hitting the same bug
// at once would otherwise flood stderr once per tick per connection.
var wireErrorLog = logx.NewLogEvery(nil, time.Second)

// Metrics holds every collector this generator exposes. None of them are ever
// served over HTTP — see DESIGN.md for why. Sample updates them each call; the
// stderr summary line is computed from Sample's own inputs, not read back from
// the registry.
type Metrics struct {
	reg *prometheus.Registry

	PhaseGauge  *prometheus.GaugeVec
	ChunkGauge  prometheus.Histogram
	RTTGauge    *prometheus.GaugeVec
	LagGauge    prometheus.Gauge
	LagHist     prometheus.Histogram

	ConnectionClosed prometheus.Counter
	WireErrorCount   *prometheus.CounterVec
}

// New registers a fresh set of collectors against a private registry, so that
// running tests that construct multiple Metrics values never collide on
// promauto's default global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		PhaseGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcbot_connections_by_phase",
				Help: "Current number of connections in each protocol phase.",
			}, []string{"phase"}),

		ChunkGauge: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcbot_loaded_chunks_histogram",
				Help:    "Distribution, across connections, of loaded-minus-forgotten chunk counts.",
				Buckets: prometheus.LinearBuckets(0, 32, 20),
			}),

		RTTGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcbot_rtt_milliseconds",
				Help: "Aggregate ping RTT statistic, in milliseconds, across all connections.",
			}, []string{"stat"}),

		LagGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcbot_tick_lag_seconds",
				Help: "Scheduler tick lag accumulated since the scheduler started, as of the last sample.",
			}),

		LagHist: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcbot_tick_lag_histogram",
				Help:    "Distribution of the accumulated tick lag observed at each sample.",
				Buckets: prometheus.LinearBuckets(0, 0.01, 25),
			}),

		ConnectionClosed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mcbot_connection_closed_total",
				Help: "Total number of connections torn down, for any reason.",
			}),

		WireErrorCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcbot_wire_error_total",
				Help: "Total number of wire-level decode errors, by phase.",
			}, []string{"phase"}),
	}
}

// ConnState summarizes one connection's contribution to a Sample call. cmd/mcbot
// builds a slice of these from the live connection set each second; metrics
// itself has no dependency on package client to avoid an import cycle.
type ConnState struct {
	Phase      string
	ChunkCount int
	RTTMin, RTTMax, RTTSum time.Duration
	RTTCount   int
}

// Row is one CSV-renderable snapshot row, built by Sample for the optional
// MCBOT_CSV_METRICS output.
type Row struct {
	Time          string `csv:"time"`
	Connections   int    `csv:"connections"`
	Login         int    `csv:"phase_login"`
	Config        int    `csv:"phase_config"`
	Play          int    `csv:"phase_play"`
	RTTMinMillis  float64 `csv:"rtt_min_ms"`
	RTTMaxMillis  float64 `csv:"rtt_max_ms"`
	RTTMeanMillis float64 `csv:"rtt_mean_ms"`
	TickLagMillis float64 `csv:"tick_lag_ms"`
}

// Sample folds the current connection states into the registered collectors and
// writes one stderr summary line. now is passed in rather than read from
// time.Now so callers can use a fixed clock in tests.
func (m *Metrics) Sample(now time.Time, conns []ConnState, tickLag time.Duration, w io.Writer) Row {
	var login, config, play int
	var chunkTotal int
	var rttMin, rttMax, rttSum time.Duration
	var rttCount int

	for _, c := range conns {
		switch c.Phase {
		case "Login":
			login++
		case "Config":
			config++
		case "Play":
			play++
		}
		chunkTotal += c.ChunkCount
		m.ChunkGauge.Observe(float64(c.ChunkCount))
		if c.RTTCount > 0 {
			rttCount += c.RTTCount
			rttSum += c.RTTSum
			if rttMin == 0 || c.RTTMin < rttMin {
				rttMin = c.RTTMin
			}
			if c.RTTMax > rttMax {
				rttMax = c.RTTMax
			}
		}
	}

	m.PhaseGauge.WithLabelValues("login").Set(float64(login))
	m.PhaseGauge.WithLabelValues("config").Set(float64(config))
	m.PhaseGauge.WithLabelValues("play").Set(float64(play))

	var mean float64
	if rttCount > 0 {
		mean = float64(rttSum.Milliseconds()) / float64(rttCount)
	}
	m.RTTGauge.WithLabelValues("min").Set(float64(rttMin.Milliseconds()))
	m.RTTGauge.WithLabelValues("max").Set(float64(rttMax.Milliseconds()))
	m.RTTGauge.WithLabelValues("mean").Set(mean)

	m.LagGauge.Set(tickLag.Seconds())
	m.LagHist.Observe(tickLag.Seconds())

	row := Row{
		Time:          now.Format(time.RFC3339),
		Connections:   len(conns),
		Login:         login,
		Config:        config,
		Play:          play,
		RTTMinMillis:  float64(rttMin.Milliseconds()),
		RTTMaxMillis:  float64(rttMax.Milliseconds()),
		RTTMeanMillis: mean,
		TickLagMillis: float64(tickLag.Milliseconds()),
	}

	fmt.Fprintf(w, "%s conns=%d login=%d config=%d play=%d chunks=%d rtt_ms=%.1f/%.1f/%.1f lag_ms=%.1f\n",
		row.Time, row.Connections, login, config, play, chunkTotal,
		row.RTTMinMillis, row.RTTMaxMillis, row.RTTMeanMillis, row.TickLagMillis)

	return row
}

// WriteCSV renders accumulated rows as CSV. Called only when MCBOT_CSV_METRICS=1
// is set, so the CSV rendering stays an auxiliary stderr-adjacent line rather
// than a second, always-on output channel.
func WriteCSV(rows []Row, w io.Writer) error {
	return gocsv.Marshal(rows, w)
}

// LogWireError records a wire-level decode error for the given phase and prints
// a rate-limited warning; called from the dispatch error path in package mux.
func (m *Metrics) LogWireError(phase string, err error) {
	m.WireErrorCount.WithLabelValues(phase).Inc()
	wireErrorLog.Printf("wire error in phase %s: %v", phase, err)
}
