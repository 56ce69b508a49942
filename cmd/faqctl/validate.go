package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/faq-matcher/internal/bootstrap"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and encode the configured corpus",
	Long:  "Load every entry from the configured corpus source, encode all questions and report the result. Exits non-zero on any load or encoding error.",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var validateList bool

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateList, "list", false, "Print every loaded question")
}

func runValidate(cmd *cobra.Command, args []string) error {
	matcher, cleanup, err := bootstrap.BuildMatcher(cmd.Context(), globalConfig, globalLogger)
	defer cleanup()
	if err != nil {
		return fmt.Errorf("corpus invalid: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "corpus ok: %d entries, %d dimensions (source=%s, encoder=%s)\n",
		matcher.Size(), matcher.Dimension(), globalConfig.Corpus.Kind, globalConfig.Encoder.Kind)
	if validateList {
		for i, entry := range matcher.Entries() {
			fmt.Fprintf(out, "%4d  [%s] %s\n", i, entry.ID, entry.Question)
		}
	}
	return nil
}
