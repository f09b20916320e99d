// Copyright 2026 ReaxNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reaxnet-ml/reaxnet/internal/config"
)

// rootFlags holds flags shared by all subcommands.
type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "reaxnet",
		Short: "Graph neural network for reaction property prediction",
		Long: `reaxnet trains and probes a graph neural network that predicts
reaction-level properties (such as bond dissociation energies) from
pre-featurized molecule graphs and reaction descriptors.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config (env REAXNET_* overrides apply)")
	cmd.AddCommand(newTrainCmd(flags))
	cmd.AddCommand(newFeaturesCmd(flags))
	return cmd
}

// loadConfig loads the config file when given, or environment + defaults.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.configPath != "" {
		return config.Load(flags.configPath)
	}
	return config.LoadFromEnv()
}

// newLogger builds a production zap logger at the configured level.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
