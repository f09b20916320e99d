// Package config provides configuration loading, defaults and validation
// for the reaxnet training tooling.
package config

import "fmt"

// ModelConfig holds the reaction network hyperparameters.
type ModelConfig struct {
	EmbeddingSize int `mapstructure:"embedding_size"`

	GatedHiddenSizes []int   `mapstructure:"gated_hidden_sizes"`
	GatedActivation  string  `mapstructure:"gated_activation"`
	GatedBatchNorm   bool    `mapstructure:"gated_batch_norm"`
	GatedGraphNorm   bool    `mapstructure:"gated_graph_norm"`
	GatedResidual    bool    `mapstructure:"gated_residual"`
	GatedDropout     float32 `mapstructure:"gated_dropout"`

	Set2SetIterations int `mapstructure:"set2set_iterations"`
	Set2SetLayers     int `mapstructure:"set2set_layers"`

	FCHiddenSizes []int   `mapstructure:"fc_hidden_sizes"`
	FCActivation  string  `mapstructure:"fc_activation"`
	FCBatchNorm   bool    `mapstructure:"fc_batch_norm"`
	FCDropout     float32 `mapstructure:"fc_dropout"`

	OutputSize int `mapstructure:"output_size"`
}

// TrainConfig holds the training loop parameters.
type TrainConfig struct {
	Epochs                int     `mapstructure:"epochs"`
	BatchSize             int     `mapstructure:"batch_size"`
	LR                    float32 `mapstructure:"lr"`
	WeightDecay           float32 `mapstructure:"weight_decay"`
	SchedulerFactor       float32 `mapstructure:"scheduler_factor"`
	SchedulerPatience     int     `mapstructure:"scheduler_patience"`
	EarlyStoppingPatience int     `mapstructure:"early_stopping_patience"`
	Seed                  int64   `mapstructure:"seed"`
	ValidationFraction    float64 `mapstructure:"validation_fraction"`
	TestFraction          float64 `mapstructure:"test_fraction"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"` // "debug" | "info" | "warn" | "error"
}

// MetricsConfig holds the optional metrics endpoint settings.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"` // empty disables the endpoint
}

// Config is the root configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Train   TrainConfig   `mapstructure:"train"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Validate performs semantic validation of a fully-populated Config. It is
// called after ApplyDefaults, so every unset field already carries its
// default.
func (c *Config) Validate() error {
	m := c.Model
	if m.EmbeddingSize < 1 {
		return fmt.Errorf("model.embedding_size must be positive, got %d", m.EmbeddingSize)
	}
	if len(m.GatedHiddenSizes) == 0 {
		return fmt.Errorf("model.gated_hidden_sizes must name at least one layer")
	}
	for i, h := range m.GatedHiddenSizes {
		if h < 1 {
			return fmt.Errorf("model.gated_hidden_sizes[%d] must be positive, got %d", i, h)
		}
	}
	for i, h := range m.FCHiddenSizes {
		if h < 1 {
			return fmt.Errorf("model.fc_hidden_sizes[%d] must be positive, got %d", i, h)
		}
	}
	if m.Set2SetIterations < 1 || m.Set2SetLayers < 1 {
		return fmt.Errorf("model.set2set_iterations and model.set2set_layers must be positive")
	}
	if m.GatedDropout < 0 || m.GatedDropout >= 1 || m.FCDropout < 0 || m.FCDropout >= 1 {
		return fmt.Errorf("dropout probabilities must be in [0, 1)")
	}
	if m.OutputSize < 1 {
		return fmt.Errorf("model.output_size must be positive, got %d", m.OutputSize)
	}

	t := c.Train
	if t.Epochs < 1 {
		return fmt.Errorf("train.epochs must be positive, got %d", t.Epochs)
	}
	if t.BatchSize < 1 {
		return fmt.Errorf("train.batch_size must be positive, got %d", t.BatchSize)
	}
	if t.LR <= 0 {
		return fmt.Errorf("train.lr must be positive, got %v", t.LR)
	}
	if t.SchedulerFactor <= 0 || t.SchedulerFactor >= 1 {
		return fmt.Errorf("train.scheduler_factor must be in (0, 1), got %v", t.SchedulerFactor)
	}
	if t.ValidationFraction < 0 || t.TestFraction < 0 || t.ValidationFraction+t.TestFraction >= 1 {
		return fmt.Errorf("train validation/test fractions %v/%v leave no training data",
			t.ValidationFraction, t.TestFraction)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}
