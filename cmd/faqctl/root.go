package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/faq-matcher/internal/infra/config"
	"github.com/yanqian/faq-matcher/pkg/logger"
)

var (
	globalConfig *config.Config
	globalLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "faqctl",
	Short:         "Query and validate the FAQ matcher offline",
	Long:          "faqctl builds the matcher from the same configuration as the server and runs one-off queries or corpus checks against it.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		globalLogger = logger.NewWithWriter(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		return nil
	},
}
