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
	"io"
	"time"

	"github.com/permledger/noded/pkg/private/serrors"
	"github.com/permledger/noded/pkg/private/util"
	"github.com/permledger/noded/private/config"
	"github.com/permledger/noded/private/periodic"
)

// DefaultPollInterval is the poll period used when none is configured.
const DefaultPollInterval = 5 * time.Second

// Config configures the synchronizer. It can be embedded in a node's TOML
// configuration file.
type Config struct {
	// PollInterval is the period between directory scans.
	PollInterval util.DurWrap `toml:"poll_interval,omitempty"`

	// Ticker overrides the poll timer. Only set in tests.
	Ticker periodic.Ticker `toml:"-"`
}

func (cfg *Config) InitDefaults() {
	if cfg.PollInterval.Duration == 0 {
		cfg.PollInterval.Duration = DefaultPollInterval
	}
}

func (cfg *Config) Validate() error {
	if cfg.PollInterval.Duration < 0 {
		return serrors.New("poll interval must not be negative",
			"poll_interval", cfg.PollInterval)
	}
	return nil
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, `
# The period between scans of the watched node directories.
poll_interval = "5s"
`)
}

func (cfg *Config) ConfigName() string {
	return "nodeinfo"
}

func (cfg *Config) ticker() periodic.Ticker {
	if cfg.Ticker != nil {
		return cfg.Ticker
	}
	return periodic.NewTicker(cfg.PollInterval.Duration)
}
