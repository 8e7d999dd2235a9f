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

// Package metrics defines simple interfaces for counters and gauges, so
// components do not need to depend on a concrete metrics implementation.
// Nil values of the interfaces are valid and are no-ops, use the package
// functions to operate on possibly-nil metrics.
package metrics

// Counter describes a monotonically increasing metric.
type Counter interface {
	// With returns a counter with the given label values attached.
	With(labelValues ...string) Counter
	// Add increments the counter by the given delta. The delta must be
	// non-negative.
	Add(delta float64)
}

// Gauge describes a metric that can go up and down.
type Gauge interface {
	// With returns a gauge with the given label values attached.
	With(labelValues ...string) Gauge
	// Set sets the gauge to the given value.
	Set(value float64)
	// Add increments the gauge by the given delta.
	Add(delta float64)
}

// CounterInc increments the counter by one, if the counter is not nil.
func CounterInc(c Counter) {
	CounterAdd(c, 1)
}

// CounterAdd increments the counter by the delta, if the counter is not nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// CounterWith returns the counter with the labels attached, if the counter is
// not nil.
func CounterWith(c Counter, labelValues ...string) Counter {
	if c == nil {
		return nil
	}
	return c.With(labelValues...)
}

// GaugeSet sets the gauge to the value, if the gauge is not nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}

// GaugeAdd increments the gauge by the delta, if the gauge is not nil.
func GaugeAdd(g Gauge, delta float64) {
	if g != nil {
		g.Add(delta)
	}
}
