package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/jancona/m17codec/m17"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// decoderMetrics holds the Prometheus collectors for receiver activity
type decoderMetrics struct {
	framesTotal  *prometheus.CounterVec   // Frames received (by type and result)
	packetsTotal *prometheus.CounterVec   // Complete packets (by result)
	costBits     *prometheus.HistogramVec // Viterbi cost of delivered frames, in bit errors (by type)
}

func newDecoderMetrics(reg prometheus.Registerer) *decoderMetrics {
	f := promauto.With(reg)
	return &decoderMetrics{
		framesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m17_frames_total",
				Help: "Total number of M17 frames received",
			},
			[]string{"type", "result"},
		),
		packetsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m17_packets_total",
				Help: "Total number of M17 packets reassembled",
			},
			[]string{"result"},
		),
		costBits: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "m17_viterbi_cost_bits",
				Help:    "Viterbi path cost of delivered frames in equivalent bit errors",
				Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"type"},
		),
	}
}

func (m *decoderMetrics) delivered(f m17.Frame) {
	m.framesTotal.WithLabelValues(f.Type.String(), "ok").Inc()
	m.costBits.WithLabelValues(f.Type.String()).Observe(float64(f.Cost) / float64(m17.SoftOne))
	if f.Type == m17.FramePacket {
		m.packetsTotal.WithLabelValues("ok").Inc()
	}
}

func (m *decoderMetrics) dropped(d m17.Dropped) {
	result := dropReason(d.Err)
	m.framesTotal.WithLabelValues(d.Type.String(), result).Inc()
	if d.Type == m17.FramePacket && result != "cost" {
		m.packetsTotal.WithLabelValues(result).Inc()
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, m17.ErrCostExceeded):
		return "cost"
	case errors.Is(err, m17.ErrBadCRC):
		return "crc"
	case errors.Is(err, m17.ErrFrameOrder):
		return "order"
	case errors.Is(err, m17.ErrNoLSF):
		return "no_lsf"
	}
	return "error"
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		log.Printf("[INFO] Serving metrics on %s", addr)
		err := http.ListenAndServe(addr, mux)
		if err != nil {
			log.Printf("[ERROR] Metrics server failed: %v", err)
		}
	}()
}
