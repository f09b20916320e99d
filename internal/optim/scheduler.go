package optim

// ReduceLROnPlateau lowers the optimizer's learning rate by a factor when
// a monitored score (lower is better) has not improved for patience
// consecutive steps.
type ReduceLROnPlateau struct {
	opt      Optimizer
	factor   float32
	patience int
	minLR    float32

	best    float32
	bad     int
	started bool
}

// ReduceLROnPlateauConfig holds scheduler configuration.
type ReduceLROnPlateauConfig struct {
	Factor   float32 // multiplicative decay, range (0, 1) (default 0.5)
	Patience int     // steps without improvement before decay (default 10)
	MinLR    float32 // lower bound on the learning rate
}

// NewReduceLROnPlateau creates a plateau scheduler wrapping an optimizer.
func NewReduceLROnPlateau(opt Optimizer, config ReduceLROnPlateauConfig) *ReduceLROnPlateau {
	if config.Factor == 0 {
		config.Factor = 0.5
	}
	if config.Patience == 0 {
		config.Patience = 10
	}
	return &ReduceLROnPlateau{
		opt:      opt,
		factor:   config.Factor,
		patience: config.Patience,
		minLR:    config.MinLR,
	}
}

// Step records one monitored score and decays the learning rate when the
// score has plateaued. It returns true when a decay happened.
func (s *ReduceLROnPlateau) Step(score float32) bool {
	if !s.started || score < s.best {
		s.best = score
		s.bad = 0
		s.started = true
		return false
	}
	s.bad++
	if s.bad <= s.patience {
		return false
	}
	s.bad = 0
	lr := s.opt.GetLR() * s.factor
	if lr < s.minLR {
		lr = s.minLR
	}
	if lr == s.opt.GetLR() {
		return false
	}
	s.opt.SetLR(lr)
	return true
}
