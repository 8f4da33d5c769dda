package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend learning-path nodes for one learner",
	Long:  "Reads a RecommendRequest JSON payload, runs it through the recommendation pipeline and prints the ranked recommendations as JSON.",
	RunE:  runRecommend,
}

var (
	recommendPayload string
	recommendStats   bool
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendPayload, "payload", "p", "-", "Path to request JSON, or - for stdin")
	recommendCmd.Flags().BoolVar(&recommendStats, "stats", false, "Print pipeline metrics to stderr after the response")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	payload, err := readPayload(cmd.InOrStdin(), recommendPayload)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := rt.handler.Handle(cmd.Context(), payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if recommendStats {
		summary, err := json.MarshalIndent(rt.metrics.GetSummary(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), string(summary))
	}
	return nil
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file %s: %w", path, err)
	}
	return data, nil
}
