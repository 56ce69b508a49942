package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/faq-matcher/internal/bootstrap"
	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Match a single query against the corpus",
	Long:  "Build the matcher, encode the query and print the best answer with its similarity score.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var (
	askThreshold float64
	askJSON      bool
)

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().Float64Var(&askThreshold, "threshold", faq.DefaultThreshold, "Minimum similarity for a match (overrides config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the match result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	matcher, cleanup, err := bootstrap.BuildMatcher(ctx, globalConfig, globalLogger)
	defer cleanup()
	if err != nil {
		return fmt.Errorf("failed to build matcher: %w", err)
	}

	threshold := globalConfig.FAQ.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = askThreshold
	}
	query := strings.Join(args, " ")
	result := matcher.FindBestMatch(ctx, query, threshold)

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Outcome:    %s\n", result.Outcome)
	fmt.Fprintf(out, "Confidence: %.4f\n", result.Score)
	if result.MatchedQuestion != nil {
		fmt.Fprintf(out, "Matched:    %s\n", *result.MatchedQuestion)
	}
	fmt.Fprintf(out, "Answer:     %s\n", result.Answer)
	return nil
}
