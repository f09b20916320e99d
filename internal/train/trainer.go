// Package train drives the optimization of a reaction network: epoch loop,
// validation metric, plateau scheduling, early stopping and observability.
package train

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/dataset"
	"github.com/reaxnet-ml/reaxnet/internal/model"
	"github.com/reaxnet-ml/reaxnet/internal/nn"
	"github.com/reaxnet-ml/reaxnet/internal/optim"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Config holds the training loop parameters.
type Config struct {
	Epochs                int
	BatchSize             int
	EarlyStoppingPatience int // 0 disables early stopping
	Seed                  int64
}

// Result summarizes a finished training run.
type Result struct {
	Epochs  int // epochs actually run
	BestMAE float32
	Best    int // epoch of the best validation score, 1-based
}

// Trainer runs the epoch loop for a reaction network. The model must have
// been built on the trainer's autodiff backend so its parameters appear on
// the tape.
type Trainer struct {
	model     *model.ReactionNetwork
	optimizer optim.Optimizer
	scheduler *optim.ReduceLROnPlateau // optional
	backend   *autodiff.Backend
	cfg       Config
	log       *zap.Logger
}

// New creates a Trainer. scheduler and log may be nil.
func New(m *model.ReactionNetwork, opt optim.Optimizer, scheduler *optim.ReduceLROnPlateau, backend *autodiff.Backend, cfg Config, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{
		model:     m,
		optimizer: opt,
		scheduler: scheduler,
		backend:   backend,
		cfg:       cfg,
		log:       log,
	}
}

// Fit trains until the epoch budget or early stopping is reached and
// returns the best validation score seen. It aborts with an error when the
// loss turns non-finite.
func (t *Trainer) Fit(trainSet, valSet *dataset.Dataset) (*Result, error) {
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	stop := earlyStopping{patience: t.cfg.EarlyStoppingPatience}
	res := &Result{BestMAE: float32(math.Inf(1))}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		loss, err := t.trainEpoch(trainSet, rng)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		mae, err := t.Evaluate(valSet)
		if err != nil {
			return nil, fmt.Errorf("epoch %d validation: %w", epoch, err)
		}

		if t.scheduler != nil && t.scheduler.Step(mae) {
			t.log.Info("reduced learning rate", zap.Float32("lr", t.optimizer.GetLR()))
		}
		improved, halt := stop.step(mae)
		if improved {
			res.BestMAE = mae
			res.Best = epoch
		}
		res.Epochs = epoch

		elapsed := time.Since(start)
		trainLoss.Set(float64(loss))
		validationMAE.Set(float64(mae))
		learningRate.Set(float64(t.optimizer.GetLR()))
		epochsTotal.Inc()
		epochDuration.Observe(elapsed.Seconds())
		t.log.Info("epoch finished",
			zap.Int("epoch", epoch),
			zap.Float32("train_loss", loss),
			zap.Float32("validation_mae", mae),
			zap.Float32("lr", t.optimizer.GetLR()),
			zap.Duration("elapsed", elapsed),
		)

		if halt {
			t.log.Info("early stopping",
				zap.Int("epoch", epoch),
				zap.Float32("best_mae", res.BestMAE),
				zap.Int("best_epoch", res.Best))
			break
		}
	}
	return res, nil
}

// trainEpoch runs one pass over the training set and returns the mean
// batch loss.
func (t *Trainer) trainEpoch(ds *dataset.Dataset, rng *rand.Rand) (float32, error) {
	t.model.SetTraining(true)
	batches, err := ds.Batches(t.cfg.BatchSize, true, rng)
	if err != nil {
		return 0, err
	}

	tape := t.backend.Tape()
	var total float32
	for i, batch := range batches {
		tape.Clear()
		tape.StartRecording()

		loss, err := t.batchLoss(batch)
		if err != nil {
			tape.StopRecording()
			return 0, err
		}
		lossValue := loss.Item()
		if math.IsNaN(float64(lossValue)) || math.IsInf(float64(lossValue), 0) {
			tape.StopRecording()
			return 0, fmt.Errorf("batch %d: loss diverged (%v)", i, lossValue)
		}

		grads := autodiff.Backward(loss, t.backend)
		tape.StopRecording()
		t.optimizer.Step(grads)
		t.optimizer.ZeroGrad()
		total += lossValue
	}
	tape.Clear()
	return total / float32(len(batches)), nil
}

func (t *Trainer) batchLoss(batch *dataset.Batch) (*tensor.Tensor, error) {
	normAtom, normBond := batch.GraphNorms()
	pred, err := t.model.Forward(batch.Graph, batch.Features, batch.Reactions,
		tensor.New(normAtom, t.backend), tensor.New(normBond, t.backend))
	if err != nil {
		return nil, err
	}
	return nn.MSELoss(pred, tensor.New(batch.Labels, t.backend)), nil
}

// Evaluate computes the mean absolute error over a dataset in eval mode.
// Per-sample label scales weight the absolute errors, so the result is in
// the original label units when labels were normalized.
func (t *Trainer) Evaluate(ds *dataset.Dataset) (float32, error) {
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	batches, err := ds.Batches(t.cfg.BatchSize, false, nil)
	if err != nil {
		return 0, err
	}

	var sum float64
	var count int
	for _, batch := range batches {
		normAtom, normBond := batch.GraphNorms()
		pred, err := t.model.Forward(batch.Graph, batch.Features, batch.Reactions,
			tensor.New(normAtom, t.backend), tensor.New(normBond, t.backend))
		if err != nil {
			return 0, err
		}
		labelDim := batch.Labels.Shape().Cols()
		pd, ld := pred.Data(), batch.Labels.Data()
		for r := 0; r < len(batch.Scales); r++ {
			for c := 0; c < labelDim; c++ {
				i := r*labelDim + c
				sum += float64(batch.Scales[r]) * math.Abs(float64(pd[i]-ld[i]))
				count++
			}
		}
	}
	t.backend.Tape().Clear()
	return float32(sum / float64(count)), nil
}

// earlyStopping tracks a lower-is-better score and signals a halt after
// patience epochs without improvement. Zero patience never halts.
type earlyStopping struct {
	patience int
	best     float32
	bad      int
	started  bool
}

func (e *earlyStopping) step(score float32) (improved, stop bool) {
	if !e.started || score < e.best {
		e.best = score
		e.bad = 0
		e.started = true
		return true, false
	}
	e.bad++
	return false, e.patience > 0 && e.bad >= e.patience
}
