// Copyright 2026 ReaxNet Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/dataset"
	"github.com/reaxnet-ml/reaxnet/internal/model"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// reactionFeatures is one reaction embedding in the JSON output.
type reactionFeatures struct {
	ID       string    `json:"id"`
	Features []float32 `json:"features"`
}

func newFeaturesCmd(flags *rootFlags) *cobra.Command {
	var dataPath, outPath string
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Compute per-reaction embedding vectors (pipeline output before the FC head)",
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

			backend := autodiff.New(cpu.New())
			ds, err := dataset.LoadJSON(dataPath, backend)
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(cfg.Train.Seed))
			m, err := model.New(modelOptions(cfg, ds), rng, backend)
			if err != nil {
				return err
			}
			m.SetTraining(false)

			batches, err := ds.Batches(cfg.Train.BatchSize, false, nil)
			if err != nil {
				return err
			}

			var out []reactionFeatures
			for _, batch := range batches {
				normAtom, normBond := batch.GraphNorms()
				ft, err := m.FeaturesBeforeFC(batch.Graph, batch.Features, batch.Reactions,
					tensor.New(normAtom, backend), tensor.New(normBond, backend))
				if err != nil {
					return err
				}
				width := ft.Shape().Cols()
				for r, rxn := range batch.Reactions {
					row := make([]float32, width)
					copy(row, ft.Data()[r*width:(r+1)*width])
					out = append(out, reactionFeatures{ID: rxn.ID, Features: row})
				}
				backend.Tape().Clear()
			}
			log.Info("features computed", zap.Int("reactions", len(out)))

			w := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "path to the reaction samples JSON file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.MarkFlagRequired("data")
	return cmd
}
