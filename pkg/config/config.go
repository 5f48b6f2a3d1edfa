// Copyright 2025 walteh LLC
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

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🎯 Config holds user preferences, stored at
// $XDG_CONFIG_HOME/repopack/config.yaml and created with defaults on
// first load.
type Config struct {
	ConcurrentDownloadLimit int64  `yaml:"concurrent_download_limit"`
	GithubTokenPath         string `yaml:"github_token_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}

	return &Config{
		ConcurrentDownloadLimit: 5,
		GithubTokenPath:         filepath.Join(home, ".github", "token"),
	}
}

// 📄 Load reads the user configuration, writing the defaults to disk if
// no config file exists yet.
func Load(ctx context.Context) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	path, err := configPath()
	if err != nil {
		return nil, errors.Errorf("locating config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := cfg.Save(); saveErr != nil {
			logger.Debug().Err(saveErr).Str("path", path).Msg("writing default config")
		}
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if cfg.ConcurrentDownloadLimit < 1 {
		cfg.ConcurrentDownloadLimit = Default().ConcurrentDownloadLimit
	}

	return &cfg, nil
}

// 💾 Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return errors.Errorf("locating config directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("saving config: %w", err)
	}

	return nil
}

// 🔑 ReadToken reads the GitHub token from the configured token file.
// Returns the empty string if the file is missing or blank.
func (c *Config) ReadToken() string {
	data, err := os.ReadFile(c.GithubTokenPath)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Errorf("resolving user config dir: %w", err)
	}

	return filepath.Join(base, "repopack", "config.yaml"), nil
}
