// Copyright 2026 ReaxNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/config"
	"github.com/reaxnet-ml/reaxnet/internal/dataset"
	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/model"
	"github.com/reaxnet-ml/reaxnet/internal/optim"
	"github.com/reaxnet-ml/reaxnet/internal/train"
)

func newTrainCmd(flags *rootFlags) *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a reaction network on a JSON reaction dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runTrain(cfg, dataPath, log)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "path to the reaction samples JSON file")
	cmd.MarkFlagRequired("data")
	return cmd
}

func runTrain(cfg *config.Config, dataPath string, log *zap.Logger) error {
	backend := autodiff.New(cpu.New())

	ds, err := dataset.LoadJSON(dataPath, backend)
	if err != nil {
		return err
	}
	log.Info("dataset loaded", zap.String("path", dataPath), zap.Int("samples", ds.Len()))

	trainSet, valSet, testSet, err := ds.TrainValidationTestSplit(
		cfg.Train.ValidationFraction, cfg.Train.TestFraction, cfg.Train.Seed)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Train.Seed))
	m, err := model.New(modelOptions(cfg, ds), rng, backend)
	if err != nil {
		return err
	}

	opt := optim.NewAdam(m.Parameters(), optim.AdamConfig{
		LR:          cfg.Train.LR,
		WeightDecay: cfg.Train.WeightDecay,
	})
	scheduler := optim.NewReduceLROnPlateau(opt, optim.ReduceLROnPlateauConfig{
		Factor:   cfg.Train.SchedulerFactor,
		Patience: cfg.Train.SchedulerPatience,
	})

	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := train.ServeMetrics(cfg.Metrics.ListenAddr); err != nil {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.ListenAddr))
	}

	trainer := train.New(m, opt, scheduler, backend, train.Config{
		Epochs:                cfg.Train.Epochs,
		BatchSize:             cfg.Train.BatchSize,
		EarlyStoppingPatience: cfg.Train.EarlyStoppingPatience,
		Seed:                  cfg.Train.Seed,
	}, log)

	res, err := trainer.Fit(trainSet, valSet)
	if err != nil {
		return err
	}
	log.Info("training finished",
		zap.Int("epochs", res.Epochs),
		zap.Int("best_epoch", res.Best),
		zap.Float32("best_validation_mae", res.BestMAE))

	if testSet.Len() > 0 {
		testMAE, err := trainer.Evaluate(testSet)
		if err != nil {
			return err
		}
		log.Info("test evaluation", zap.Float32("test_mae", testMAE))
	}
	return nil
}

// modelOptions derives the model options from the config and the feature
// widths of the loaded dataset.
func modelOptions(cfg *config.Config, ds *dataset.Dataset) model.Options {
	feats := ds.Samples()[0].Features
	return model.Options{
		AtomFeatureSize:   feats[graph.Atom].Shape().Cols(),
		BondFeatureSize:   feats[graph.Bond].Shape().Cols(),
		GlobalFeatureSize: feats[graph.Global].Shape().Cols(),
		EmbeddingSize:     cfg.Model.EmbeddingSize,
		GatedHiddenSizes:  cfg.Model.GatedHiddenSizes,
		GatedActivation:   cfg.Model.GatedActivation,
		GatedBatchNorm:    cfg.Model.GatedBatchNorm,
		GatedGraphNorm:    cfg.Model.GatedGraphNorm,
		GatedResidual:     cfg.Model.GatedResidual,
		GatedDropout:      cfg.Model.GatedDropout,
		Set2SetIterations: cfg.Model.Set2SetIterations,
		Set2SetLayers:     cfg.Model.Set2SetLayers,
		FCHiddenSizes:     cfg.Model.FCHiddenSizes,
		FCActivation:      cfg.Model.FCActivation,
		FCBatchNorm:       cfg.Model.FCBatchNorm,
		FCDropout:         cfg.Model.FCDropout,
		OutputSize:        cfg.Model.OutputSize,
	}
}
