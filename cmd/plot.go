package main

import (
	"fmt"

	"github.com/cwbudde/subspaceopt/internal/report"
	"github.com/cwbudde/subspaceopt/internal/store"
	"github.com/spf13/cobra"
)

var (
	plotOut    string
	plotSeries string
	plotX      string
	plotSuffix string
	plotLogX   bool
	plotLogY   bool
	plotStart  int
	plotEnd    int
	plotTitle  string
)

var plotCmd = &cobra.Command{
	Use:   "plot [run-id...]",
	Short: "Plot stored metric series",
	Long: `Draws one metric series of several runs into a single image. Without run IDs
every run with a checkpoint is plotted. Baseline runs can be named explicitly;
their single value is drawn as a horizontal line.`,
	Example: `  subspaceopt plot --series fvalues --log-y --out fvalues.png run-a run-b
  subspaceopt plot --x time --out time.svg`,
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "plot.png", "Output image (png, svg, pdf)")
	plotCmd.Flags().StringVar(&plotSeries, "series", store.SeriesValues, "Series on the vertical axis")
	plotCmd.Flags().StringVar(&plotX, "x", "", "Series on the horizontal axis (default: iteration)")
	plotCmd.Flags().StringVar(&plotSuffix, "suffix", "", "Series file suffix")
	plotCmd.Flags().BoolVar(&plotLogX, "log-x", false, "Logarithmic horizontal axis")
	plotCmd.Flags().BoolVar(&plotLogY, "log-y", false, "Logarithmic vertical axis")
	plotCmd.Flags().IntVar(&plotStart, "start", 0, "First index to plot")
	plotCmd.Flags().IntVar(&plotEnd, "end", 0, "End index, exclusive (0 = end of series)")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "Plot title")

	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	ids := args
	if len(ids) == 0 {
		infos, err := fs.ListCheckpoints()
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}
		for _, info := range infos {
			ids = append(ids, info.RunID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no runs in %s", dataDir)
	}

	curves, err := report.LoadCurves(fs, ids, plotSuffix, plotSeries, plotX)
	if err != nil {
		return err
	}
	for i := range curves {
		curves[i].Name = shortID(curves[i].Name)
	}

	opts := report.Options{
		Title:  plotTitle,
		XLabel: plotX,
		YLabel: plotSeries,
		Start:  plotStart,
		End:    plotEnd,
		LogX:   plotLogX,
		LogY:   plotLogY,
	}
	if err := report.PlotSeries(plotOut, curves, opts); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d runs)\n", plotOut, len(curves))
	return nil
}
