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

// Package config defines the common interfaces that configuration blocks
// implement, and helpers for decoding TOML configuration files and writing
// commented sample configurations.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the interface that configuration blocks implement. A config block
// can be validated, can fill in defaults for missing values, and can write a
// commented sample of itself.
type Config interface {
	Validator
	Defaulter
	Sampler
}

// Validator defines the validation part of Config.
type Validator interface {
	// Validate validates that the config is correct.
	Validate() error
}

// Defaulter defines the defaulting part of Config.
type Defaulter interface {
	// InitDefaults patches the config with default values where none are set.
	InitDefaults()
}

// Sampler writes a commented sample configuration block.
type Sampler interface {
	// Sample writes the sample configuration to the dst writer.
	Sample(dst io.Writer, path Path, ctx CtxMap)
	// ConfigName returns the name of the config block as it appears in the
	// configuration file.
	ConfigName() string
}

// Path is the header path of a config block in the config file.
type Path []string

// Extend appends s to the path.
func (p Path) Extend(s string) Path {
	c := append(Path(nil), p...)
	return append(c, s)
}

// NoValidator implements a Validate method that never fails.
type NoValidator struct{}

func (NoValidator) Validate() error {
	return nil
}

// NoDefaulter implements an InitDefaults method that does nothing.
type NoDefaulter struct{}

func (NoDefaulter) InitDefaults() {}

// ValidateAll validates all validators, returning the first error.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InitAll initializes all defaulters.
func InitAll(defaulters ...Defaulter) {
	for _, v := range defaulters {
		v.InitDefaults()
	}
}

// Decode decodes a raw config. Unknown fields are rejected.
func Decode(raw []byte, cfg any) error {
	return toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg)
}

// LoadFile loads the config from file.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return Decode(raw, cfg)
}
