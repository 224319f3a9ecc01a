// Copyright 2025 Poiesic Systems
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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/pathways/config"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pathways",
		Usage: "Find educational programs and verify their classification codes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (yaml, json or toml)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before reading the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Use the rule-based classifiers instead of the oracle",
			},
			&cli.StringFlag{
				Name:  "records",
				Usage: "Program record file (JSON array or JSON lines)",
			},
			&cli.StringFlag{
				Name:  "region-institutions",
				Usage: "Region to institution identifiers table",
			},
			&cli.StringFlag{
				Name:  "region-schools",
				Usage: "Region to school names table",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Catalog store (file, badger)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Cache backend (memory, badger, none)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			searchCommand(),
			verifyProgramsCommand(),
			verifyCareersCommand(),
			regionsCommand(),
			serveCommand(),
			importCommand(),
		},
	}
}

// setup loads the dotenv file and configuration, applies flag overrides and
// installs the default logger.
func setup(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.String("env-file"), err)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	if cfg.ConfigFile != "" {
		logger.Debug("configuration loaded", "file", cfg.ConfigFile)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("offline") {
		cfg.Offline = true
	}
	if c.IsSet("records") {
		cfg.Data.Records = c.String("records")
	}
	if c.IsSet("region-institutions") {
		cfg.Data.RegionInstitutions = c.String("region-institutions")
	}
	if c.IsSet("region-schools") {
		cfg.Data.RegionSchools = c.String("region-schools")
	}
	if c.IsSet("store") {
		cfg.Data.Store = c.String("store")
	}
	if c.IsSet("cache") {
		cfg.Cache.Backend = c.String("cache")
	}
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
