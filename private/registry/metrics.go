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

package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/permledger/noded/pkg/metrics"
)

// Result values for the registration counter.
const (
	ResultOkInserted  = "ok_inserted"
	ResultErrValidate = "err_validate"
	ResultErrParse    = "err_parse"
)

// Metrics exposes registry metrics. The zero value records nothing.
type Metrics struct {
	// Registrations returns a counter for registration attempts with the
	// given result.
	Registrations func(result string) metrics.Counter
}

// NewMetrics creates registry metrics registered with the default prometheus
// registry.
func NewMetrics() Metrics {
	registrations := metrics.NewPromCounterFrom(
		prometheus.CounterOpts{
			Namespace: "noded",
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Number of identity registration attempts by result.",
		},
		[]string{"result"},
	)
	return Metrics{
		Registrations: func(result string) metrics.Counter {
			return registrations.With("result", result)
		},
	}
}
