package config

// Default hyperparameters. Model defaults follow the published BDE
// training setup; train defaults are a reasonable single-machine run.
const (
	DefaultEmbeddingSize     = 64
	DefaultGatedHiddenSize   = 64
	DefaultGatedLayers       = 3
	DefaultActivation        = "relu"
	DefaultSet2SetIterations = 6
	DefaultSet2SetLayers     = 3
	DefaultFCHiddenSize      = 128
	DefaultOutputSize        = 1

	DefaultEpochs                = 100
	DefaultBatchSize             = 100
	DefaultLR                    = 0.001
	DefaultSchedulerFactor       = 0.4
	DefaultSchedulerPatience     = 25
	DefaultEarlyStoppingPatience = 80
	DefaultValidationFraction    = 0.1
	DefaultTestFraction          = 0.1

	DefaultLogLevel = "info"
)

// ApplyDefaults fills zero-value fields in cfg with the defaults above.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Model
	if m.EmbeddingSize == 0 {
		m.EmbeddingSize = DefaultEmbeddingSize
	}
	if len(m.GatedHiddenSizes) == 0 {
		for i := 0; i < DefaultGatedLayers; i++ {
			m.GatedHiddenSizes = append(m.GatedHiddenSizes, DefaultGatedHiddenSize)
		}
	}
	if m.GatedActivation == "" {
		m.GatedActivation = DefaultActivation
	}
	if m.Set2SetIterations == 0 {
		m.Set2SetIterations = DefaultSet2SetIterations
	}
	if m.Set2SetLayers == 0 {
		m.Set2SetLayers = DefaultSet2SetLayers
	}
	if len(m.FCHiddenSizes) == 0 {
		m.FCHiddenSizes = []int{DefaultFCHiddenSize}
	}
	if m.FCActivation == "" {
		m.FCActivation = DefaultActivation
	}
	if m.OutputSize == 0 {
		m.OutputSize = DefaultOutputSize
	}

	t := &cfg.Train
	if t.Epochs == 0 {
		t.Epochs = DefaultEpochs
	}
	if t.BatchSize == 0 {
		t.BatchSize = DefaultBatchSize
	}
	if t.LR == 0 {
		t.LR = DefaultLR
	}
	if t.SchedulerFactor == 0 {
		t.SchedulerFactor = DefaultSchedulerFactor
	}
	if t.SchedulerPatience == 0 {
		t.SchedulerPatience = DefaultSchedulerPatience
	}
	if t.EarlyStoppingPatience == 0 {
		t.EarlyStoppingPatience = DefaultEarlyStoppingPatience
	}
	if t.ValidationFraction == 0 {
		t.ValidationFraction = DefaultValidationFraction
	}
	if t.TestFraction == 0 {
		t.TestFraction = DefaultTestFraction
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
