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

// Package nodeinfo implements peer discovery between co-located node
// instances through the filesystem. A synchronizer watches a set of node
// directories for node-info descriptor files and copies new or changed files
// into the inbox directory of every other watched node. Copies are atomic:
// a reader of a destination file never observes partial contents.
package nodeinfo

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/permledger/noded/pkg/log"
	"github.com/permledger/noded/pkg/metrics"
	"github.com/permledger/noded/pkg/private/serrors"
	"github.com/permledger/noded/private/periodic"
)

const (
	// DescriptorPrefix is the file name prefix of node-info descriptor files.
	DescriptorPrefix = "nodeInfo-"
	// InboxDirName is the directory beneath each watched directory where
	// descriptors from other nodes are deposited.
	InboxDirName = "incoming-node-infos"
)

// ErrClosed is returned by all operations on a synchronizer that has been
// closed.
var ErrClosed = serrors.New("synchronizer closed")

// Synchronizer propagates node-info descriptor files between watched node
// directories. All configuration changes and the periodic poll serialize on
// one lock, so a poll never observes a half-updated watch set.
type Synchronizer struct {
	logger  log.Logger
	metrics Metrics

	mu      sync.Mutex
	watched map[string]*watchedNode
	closed  bool
	runner  *periodic.Runner
}

// Option configures the synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. The default logger discards all entries.
func WithLogger(logger log.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithMetrics sets the synchronizer metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// New creates a synchronizer and immediately arms the poll timer with the
// configured interval. Construction does not block on I/O; directories are
// only touched when they are registered with AddConfig.
func New(cfg Config, opts ...Option) *Synchronizer {
	cfg.InitDefaults()
	s := &Synchronizer{
		logger:  log.Discard(),
		watched: make(map[string]*watchedNode),
	}
	for _, opt := range opts {
		opt(s)
	}
	interval := cfg.PollInterval.Duration
	s.runner = periodic.StartWithTicker(task{s}, cfg.ticker(), interval)
	return s
}

// task adapts the synchronizer to periodic.Task without exposing Run and
// Name on the public surface.
type task struct {
	s *Synchronizer
}

func (t task) Run(ctx context.Context) { t.s.poll(ctx) }

func (t task) Name() string { return "nodeinfo_synchronizer" }

// AddConfig registers a node directory to watch. The node's inbox directory
// is created if it does not exist. Every descriptor file already observed by
// any other watched node is copied into the new node's inbox synchronously,
// so a late joiner does not wait for the next poll cycle. Re-adding a
// directory replaces the previous registration.
func (s *Synchronizer) AddConfig(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return serrors.Wrap("adding config", ErrClosed, "dir", dir)
	}
	node, err := newWatchedNode(dir)
	if err != nil {
		return serrors.Wrap("creating inbox directory", err, "dir", dir)
	}
	for path := range s.seenFilesLocked() {
		// Files published by the directory being (re-)added stay out of its
		// own inbox.
		if filepath.Dir(path) == dir {
			continue
		}
		dst := filepath.Join(node.inbox, filepath.Base(path))
		if err := atomicCopy(path, dst); err != nil {
			metrics.CounterInc(s.metrics.CopyErrors)
			s.logger.Warn("Seeding new node inbox", "dir", dir, "file", path, "err", err)
			continue
		}
		metrics.CounterInc(s.metrics.Copies)
	}
	s.watched[dir] = node
	s.logger.Info("Watching node directory", "dir", dir, "inbox", node.inbox)
	return nil
}

// RemoveConfig unregisters a node directory. Files already copied are not
// deleted. Removing an unknown directory is a no-op.
func (s *Synchronizer) RemoveConfig(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return serrors.Wrap("removing config", ErrClosed, "dir", dir)
	}
	if _, ok := s.watched[dir]; !ok {
		return nil
	}
	delete(s.watched, dir)
	s.logger.Info("Stopped watching node directory", "dir", dir)
	return nil
}

// Reset unregisters all watched directories. No files are deleted.
func (s *Synchronizer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return serrors.Wrap("resetting", ErrClosed)
	}
	s.watched = make(map[string]*watchedNode)
	s.logger.Info("Reset watched node directories")
	return nil
}

// TriggerPoll runs a poll cycle now, without affecting the periodicity of the
// timer. It blocks until the triggered poll has started or the synchronizer
// was closed.
func (s *Synchronizer) TriggerPoll() {
	s.runner.TriggerRun()
}

// Close disarms the poll timer. It is idempotent and safe to call
// concurrently with a running poll. After Close, all other operations fail
// with ErrClosed.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	runner := s.runner
	s.mu.Unlock()
	if runner != nil {
		runner.Stop()
	}
	return nil
}

// poll scans every watched directory for new or changed descriptor files and
// copies them into the inboxes of all other watched nodes. Change detection
// is by modification timestamp: a file is propagated when it was never seen
// or its timestamp is strictly newer than the recorded one.
func (s *Synchronizer) poll(ctx context.Context) {
	logger := s.logger
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	metrics.CounterInc(s.metrics.Polls)
	for dir, node := range s.watched {
		files, err := listDescriptors(dir)
		if err != nil {
			logger.Warn("Listing watched directory", "dir", dir, "err", err)
			continue
		}
		for _, f := range files {
			prev, seen := node.seen[f.path]
			if seen && !f.modTime.After(prev) {
				continue
			}
			node.seen[f.path] = f.modTime
			if err := s.propagateLocked(dir, f.path); err != nil {
				// Roll back the recorded timestamp so the next cycle retries.
				if seen {
					node.seen[f.path] = prev
				} else {
					delete(node.seen, f.path)
				}
				logger.Warn("Propagating node-info file", "file", f.path, "err", err)
			}
		}
	}
}

// propagateLocked copies the descriptor file into the inbox of every watched
// node other than the publishing one. Must be called with the lock held.
func (s *Synchronizer) propagateLocked(srcDir, path string) error {
	var errs serrors.List
	for dir, other := range s.watched {
		if dir == srcDir {
			continue
		}
		dst := filepath.Join(other.inbox, filepath.Base(path))
		if err := atomicCopy(path, dst); err != nil {
			metrics.CounterInc(s.metrics.CopyErrors)
			errs = append(errs, serrors.Wrap("copying into inbox", err, "dst", dst))
			continue
		}
		metrics.CounterInc(s.metrics.Copies)
	}
	return errs.ToError()
}

// seenFilesLocked returns the set of all descriptor files observed by any
// watched node. Must be called with the lock held.
func (s *Synchronizer) seenFilesLocked() map[string]struct{} {
	files := make(map[string]struct{})
	for _, node := range s.watched {
		for path := range node.seen {
			files[path] = struct{}{}
		}
	}
	return files
}

// watchedNode is one watched node directory. The inbox directory exists once
// the node is constructed.
type watchedNode struct {
	dir   string
	inbox string
	// seen maps descriptor file paths to the last observed modification
	// timestamp. The zero time means never seen.
	seen map[string]time.Time
}

func newWatchedNode(dir string) (*watchedNode, error) {
	inbox := filepath.Join(dir, InboxDirName)
	if err := mkdirAll(inbox); err != nil {
		return nil, err
	}
	return &watchedNode{
		dir:   dir,
		inbox: inbox,
		seen:  make(map[string]time.Time),
	}, nil
}

// isDescriptor reports whether the file name is a node-info descriptor.
func isDescriptor(name string) bool {
	return strings.HasPrefix(name, DescriptorPrefix)
}
