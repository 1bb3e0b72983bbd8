// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

//go:build prometheus

package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/katzenpost/gnunet/wire/constants"
)

var (
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnunet_client_frames_sent_total",
			Help: "Number of frames written to daemon sockets",
		},
		[]string{"type"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnunet_client_frames_received_total",
			Help: "Number of frames read from daemon sockets",
		},
		[]string{"type"},
	)
	channelsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnunet_client_cadet_channels_opened_total",
			Help: "Number of cadet channels that reached the open state",
		},
	)
	channelsDestroyed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnunet_client_cadet_channels_destroyed_total",
			Help: "Number of cadet channels destroyed by either side",
		},
	)
	channelsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnunet_client_cadet_channels_active",
			Help: "Number of cadet channel ids currently installed",
		},
	)
	framesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnunet_client_cadet_frames_dropped_total",
			Help: "Number of inbound cadet frames for unknown channel ids",
		},
	)
)

func init() {
	prometheus.MustRegister(framesSent)
	prometheus.MustRegister(framesReceived)
	prometheus.MustRegister(channelsOpened)
	prometheus.MustRegister(channelsDestroyed)
	prometheus.MustRegister(channelsActive)
	prometheus.MustRegister(framesDropped)
}

// Init exposes the registered metrics via HTTP on address.
func Init(address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(address, mux)
}

// FrameSent counts an outbound frame.
func FrameSent(msgType uint16) {
	framesSent.With(prometheus.Labels{"type": constants.TypeName(msgType)}).Inc()
}

// FrameReceived counts an inbound frame.
func FrameReceived(msgType uint16) {
	framesReceived.With(prometheus.Labels{"type": constants.TypeName(msgType)}).Inc()
}

// ChannelInstalled tracks a newly allocated or accepted channel id.
func ChannelInstalled() {
	channelsActive.Inc()
}

// ChannelRemoved tracks a released channel id.
func ChannelRemoved() {
	channelsActive.Dec()
}

// ChannelOpened counts a channel reaching the open state.
func ChannelOpened() {
	channelsOpened.Inc()
}

// ChannelDestroyed counts a channel teardown.
func ChannelDestroyed() {
	channelsDestroyed.Inc()
}

// FrameDropped counts an inbound frame for an unknown channel id.
func FrameDropped() {
	framesDropped.Inc()
}
