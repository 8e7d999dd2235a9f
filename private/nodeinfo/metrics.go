// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeinfo

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/permledger/noded/pkg/metrics"
)

// Metrics exposes synchronizer metrics. The zero value records nothing.
type Metrics struct {
	// Polls counts completed poll cycles.
	Polls metrics.Counter
	// Copies counts descriptor files copied into inboxes.
	Copies metrics.Counter
	// CopyErrors counts failed copy attempts.
	CopyErrors metrics.Counter
}

// NewMetrics creates synchronizer metrics registered with the default
// prometheus registry.
func NewMetrics() Metrics {
	return Metrics{
		Polls: metrics.NewPromCounterFrom(
			prometheus.CounterOpts{
				Namespace: "noded",
				Subsystem: "nodeinfo",
				Name:      "polls_total",
				Help:      "Number of completed poll cycles.",
			},
			nil,
		),
		Copies: metrics.NewPromCounterFrom(
			prometheus.CounterOpts{
				Namespace: "noded",
				Subsystem: "nodeinfo",
				Name:      "copies_total",
				Help:      "Number of node-info files copied into inboxes.",
			},
			nil,
		),
		CopyErrors: metrics.NewPromCounterFrom(
			prometheus.CounterOpts{
				Namespace: "noded",
				Subsystem: "nodeinfo",
				Name:      "copy_errors_total",
				Help:      "Number of failed node-info copy attempts.",
			},
			nil,
		),
	}
}
