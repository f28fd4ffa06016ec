/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics declares the daemon's Prometheus collectors (C1/C2/C4
// instrumentation named in SPEC_FULL.md's domain stack: bytes read and
// written per object, active client count, and backoff/reconnect
// counters) and exposes them over HTTP via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BytesTotal counts bytes moved through an object's buffer, labeled
	// by console name and direction ("read" from the device, "write" to
	// it) so a single counter pair covers every console kind (C1).
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conmand_object_bytes_total",
			Help: "Bytes moved through a console or client object's buffer",
		},
		[]string{"console", "direction"},
	)

	// ClientsConnected is the number of client sessions currently in
	// DATA phase, labeled by console name (C12).
	ClientsConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conmand_clients_connected",
			Help: "Number of clients currently attached to a console",
		},
		[]string{"console"},
	)

	// ReconnectsTotal counts observed reconnects per console (a health
	// poll that sees the driver's state change to UP), labeled by the
	// driver kind (C6-C9).
	ReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conmand_reconnects_total",
			Help: "Transitions to UP observed for a console driver",
		},
		[]string{"console", "driver"},
	)

	// ConsoleState mirrors internal/health's per-console DOWN/PENDING/UP
	// state as a gauge (0/1/2) for dashboards and alerting.
	ConsoleState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conmand_console_state",
			Help: "Console driver state: 0=down, 1=pending, 2=up",
		},
		[]string{"console"},
	)
)

// Handler returns the promhttp handler the daemon mounts at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
