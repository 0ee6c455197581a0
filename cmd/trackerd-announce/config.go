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
package main

import (
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/coriolis-labs/trackerd/tracker/announce"
	"github.com/coriolis-labs/trackerd/utils/log"
)

// Config is the top-level configuration for the trackerd-announce
// binary: a thin CLI harness around the announce dispatcher.
type Config struct {
	Log      log.Config      `yaml:"log"`
	Announce announce.Config `yaml:"announce"`
}

func loadConfig(path string) (Config, error) {
	var config Config
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, err
	}
	return config, nil
}
