// Copyright 2023 Soda Tools

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config reads the shared TOML configuration of the CLI tools.
package config

import (
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the optional per-user settings. Command-line flags override
// any of these.
type Config struct {
	Domain   string `toml:"domain"`    // default data domain, e.g. "data.cityofnewyork.us"
	AppToken string `toml:"app_token"` // application token, relaxes rate limits
	QueryLog string `toml:"query_log"` // path of the executed-queries log
}

// DefaultPath is the config file location used when no -config flag is
// given.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".sodatools", "config.toml")
}

// DefaultQueryLog is the query log location used when neither the config
// file nor a flag sets one.
func DefaultQueryLog() string {
	return filepath.Join(os.Getenv("HOME"), ".sodatools", "query_log.tsv")
}

// Load reads the config file. A missing file is not an error: every setting
// is optional, and a zero-value Config is returned.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, errors.Annotate(err, "failed to open config file %s", path)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", path)
	}
	return &c, nil
}
