// Copyright (c) 2024 Coriolis Labs, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log wraps zap so every component configures logging the same
// way, via a small yaml-friendly Config.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logger configuration.
type Config struct {
	Level            string   `yaml:"level"`
	Disabled         bool     `yaml:"disabled"`
	OutputPaths      []string `yaml:"output_paths"`
	ErrorOutputPaths []string `yaml:"error_output_paths"`
}

func (c Config) applyDefaults() Config {
	if c.Level == "" {
		c.Level = "info"
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = []string{"stderr"}
	}
	return c
}

// New creates a new zap.Logger from config. fields are attached to
// every log line emitted by the returned logger.
func New(config Config, fields map[string]interface{}) (*zap.Logger, error) {
	config = config.applyDefaults()

	if config.Disabled {
		return zap.NewNop(), nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		return nil, err
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      config.OutputPaths,
		ErrorOutputPaths: config.ErrorOutputPaths,
	}

	var opts []zap.Option
	for k, v := range fields {
		opts = append(opts, zap.Fields(zap.Any(k, v)))
	}

	return zapConfig.Build(opts...)
}
