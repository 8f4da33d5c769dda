package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the logistic success ranker from labelled outcomes",
	Long:  "Fits the logistic ranker on a JSON array of {learner, item, label} examples and writes the weights file read by ranker.weights_path.",
	RunE:  runTrain,
}

var (
	trainExamples string
	trainOut      string
)

func init() {
	trainCmd.Flags().StringVarP(&trainExamples, "examples", "e", "", "Path to training examples JSON (required)")
	trainCmd.Flags().StringVarP(&trainOut, "out", "o", "", "Path to output weights JSON (default: ranker.weights_path)")

	if err := trainCmd.MarkFlagRequired("examples"); err != nil {
		panic(fmt.Sprintf("failed to mark examples flag as required: %v", err))
	}

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	out := trainOut
	if out == "" {
		out = cfg.Ranker.WeightsPath
	}
	if out == "" {
		return fmt.Errorf("no output path: pass --out or set ranker.weights_path")
	}

	examples, err := service.ReadTrainingFile(trainExamples)
	if err != nil {
		return err
	}

	ltr := service.NewLogisticScorer(cfg.Recommend.Dimension)
	if err := ltr.Train(cmd.Context(), examples, cfg.Ranker.LearningRate, cfg.Ranker.Epochs); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	if err := ltr.SaveWeights(out); err != nil {
		return err
	}

	w := ltr.Weights()
	logger.Info().
		Int("examples", len(examples)).
		Floats64("weights", w.Weights).
		Float64("bias", w.Bias).
		Str("path", out).
		Msg("ranker trained")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
