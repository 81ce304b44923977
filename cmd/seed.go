package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pawmap/mapboard/pkg/petdata"
)

var seedOut string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fetch shelter data from the pet data API into a local fixture",
	Long:  "Downloads all shelters and their adoptable pets and writes them to a YAML fixture file usable with serve --seed-file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := initPetData("")
		if err != nil {
			return err
		}

		shelters, err := client.ListShelters(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("fetched shelters", zap.Int("count", len(shelters)))

		petsByShelter := make(map[string][]petdata.Pet, len(shelters))
		var g errgroup.Group
		g.SetLimit(8)
		results := make([][]petdata.Pet, len(shelters))
		for i, sh := range shelters {
			g.Go(func() error {
				pets, err := client.ListPets(ctx, sh.ID)
				if err != nil {
					zap.L().Warn("pet lookup failed", zap.String("shelter", sh.ID), zap.Error(err))
					return nil
				}
				results[i] = pets
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i, sh := range shelters {
			if len(results[i]) > 0 {
				petsByShelter[sh.ID] = results[i]
			}
		}

		if err := petdata.WriteFixture(seedOut, shelters, petsByShelter); err != nil {
			return err
		}
		zap.L().Info("fixture written", zap.String("path", seedOut), zap.Int("shelters", len(shelters)))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOut, "out", "shelters.yaml", "output fixture path")
	rootCmd.AddCommand(seedCmd)
}
