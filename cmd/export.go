package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/export"
	"github.com/pawmap/mapboard/internal/model"
)

var (
	exportFormat   string
	exportOut      string
	exportSeedFile string
	exportCategory string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export board annotations to a file",
	Long:  "Seeds the board from the pet data API (or a fixture) and exports its annotations as a shapefile or XLSX workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initBoard(ctx, exportSeedFile)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.Board.SeedShelters(ctx); err != nil {
			return eris.Wrap(err, "seed shelters")
		}

		switch exportFormat {
		case "shp":
			var categories []model.Category
			if exportCategory != "" {
				c := model.Category(exportCategory)
				if !c.Valid() {
					return eris.Errorf("unknown category: %s", exportCategory)
				}
				categories = append(categories, c)
			}
			path := export.ShapefilePath(exportOut)
			n, err := export.Shapefile(env.Board.Store(), path, categories...)
			if err != nil {
				return err
			}
			zap.L().Info("shapefile written", zap.String("path", path), zap.Int("points", n))
		case "xlsx":
			n, err := export.ListingsXLSX(env.Board.Store(), exportOut)
			if err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", exportOut), zap.Int("rows", n))
		default:
			return eris.Errorf("unsupported format: %s (use shp or xlsx)", exportFormat)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "shp", "output format: shp or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "board", "output path (extension added for shapefiles)")
	exportCmd.Flags().StringVar(&exportSeedFile, "seed-file", "", "seed shelters from a YAML fixture instead of the pet data API")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "limit shapefile export to one category")
	rootCmd.AddCommand(exportCmd)
}
