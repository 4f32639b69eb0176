// Command evaluate runs the intent classifier over a labelled dataset and
// prints per-route precision and recall.
//
// Usage:
//
//	evaluate [dataset.json] --default-city "Feira de Santana" --min-accuracy 0.95
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iris-assistant/backend/internal/evaluation"
	"github.com/iris-assistant/backend/internal/intent"
	appLogger "github.com/iris-assistant/backend/pkg/logger"
)

var (
	defaultCity string
	minAccuracy float64
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "evaluate [dataset.json]",
	Short: "Score the intent classifier against labelled utterances",
	Long: `Runs every utterance through the intent classifier and compares the route
and parameter with the label. Without a file the bundled dataset is used.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runEvaluate,
}

func init() {
	rootCmd.Flags().StringVar(&defaultCity, "default-city", "Feira de Santana", "city used when a weather question names none")
	rootCmd.Flags().Float64Var(&minAccuracy, "min-accuracy", 0, "fail when accuracy is below this ratio")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log progress")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if verbose {
		if err := appLogger.Init("info", "console", "stderr"); err != nil {
			return err
		}
		defer appLogger.Sync()
	}

	var (
		dataset *evaluation.Dataset
		err     error
	)
	if len(args) == 1 {
		data, readErr := os.ReadFile(args[0])
		if readErr != nil {
			return fmt.Errorf("failed to read dataset: %w", readErr)
		}
		dataset, err = evaluation.LoadDatasetFromJSON(data)
	} else {
		dataset, err = evaluation.DefaultDataset()
	}
	if err != nil {
		return err
	}

	classifier := intent.NewClassifier(intent.Options{DefaultCity: defaultCity})
	report := evaluation.NewEvaluator(classifier).Run(dataset)

	fmt.Fprint(cmd.OutOrStdout(), evaluation.GenerateReport(report))

	if report.Accuracy < minAccuracy {
		return fmt.Errorf("accuracy %.3f is below the required %.3f", report.Accuracy, minAccuracy)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
