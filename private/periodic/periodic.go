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

// Package periodic provides a runner that executes a task at fixed intervals.
package periodic

import (
	"context"
	"time"

	"github.com/permledger/noded/pkg/log"
	"github.com/permledger/noded/pkg/metrics"
)

// Event types for the metrics.
const (
	// EventStop is registered when the runner is stopped.
	EventStop = "stop"
	// EventKill is registered when the runner is killed.
	EventKill = "kill"
	// EventTrigger is registered when a run is triggered externally.
	EventTrigger = "trigger"
)

// Ticker interface to improve testability of this periodic task code.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type defaultTicker struct {
	*time.Ticker
}

func (t *defaultTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTicker returns a new Ticker with time.Ticker as implementation.
func NewTicker(d time.Duration) Ticker {
	return &defaultTicker{
		Ticker: time.NewTicker(d),
	}
}

// A Task that has to be periodically executed.
type Task interface {
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
	// Name returns the tasks name, each successive call must return the same
	// value.
	Name() string
}

// Metrics can be used to instrument the runner. The zero value is valid and
// records nothing.
type Metrics struct {
	// Events returns a counter for the given event type.
	Events func(eventType string) metrics.Counter
	// Runtime is set to the duration of the last run in seconds.
	Runtime metrics.Gauge
}

func (m *Metrics) event(eventType string) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(eventType))
}

func (m *Metrics) runtime(d time.Duration) {
	if m == nil {
		return
	}
	metrics.GaugeSet(m.Runtime, d.Seconds())
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       Ticker
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
	metrics      *Metrics
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. The timeout can be
// larger than the period, that means if a task takes a long time it will be
// immediately retriggered.
func Start(task Task, period, timeout time.Duration) *Runner {
	return startRunner(task, NewTicker(period), timeout, nil)
}

// StartWithTicker is like Start, but the caller provides the ticker. This is
// mostly useful in tests that want to control time.
func StartWithTicker(task Task, ticker Ticker, timeout time.Duration) *Runner {
	return startRunner(task, ticker, timeout, nil)
}

// StartWithMetrics is like Start, additionally recording runner events in the
// given metrics.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	return startRunner(task, NewTicker(period), timeout, m)
}

func startRunner(task Task, ticker Ticker, timeout time.Duration, m *Metrics) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	runner := &Runner{
		task:         task,
		ticker:       ticker,
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
		metrics:      m,
	}
	go func() {
		defer log.HandlePanic()
		runner.runLoop()
	}()
	return runner
}

// Stop stops the periodic execution of the Runner. If the task is currently
// running this method will block until it is done.
func (r *Runner) Stop() {
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
	r.metrics.event(EventStop)
}

// Kill is like Stop but it also cancels the context of the current running
// task.
func (r *Runner) Kill() {
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
	r.metrics.event(EventKill)
}

// TriggerRun triggers the periodic task to run now. This does not impact the
// normal periodicity of this task. That means if the period is 5m and
// TriggerRun is called after 2 minutes, the next run is in 3 minutes.
//
// The method blocks until either the triggered run was started or the runner
// was stopped, in which case the triggered run will not be executed.
func (r *Runner) TriggerRun() {
	select {
	// Either we were stopped or we can put something in the trigger channel.
	case <-r.stop:
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.Chan():
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that the stop case is evaluated first, so that when we kill
	// and both channels are ready we always go into stop first.
	case <-r.stop:
		return
	default:
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		defer cancelF()
		start := time.Now()
		r.task.Run(ctx)
		r.metrics.runtime(time.Since(start))
	}
}
