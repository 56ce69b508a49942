package main

import (
	"context"
	"log/slog"

	"github.com/yanqian/faq-matcher/internal/bootstrap"
	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
)

// provideFAQService builds the matcher once at startup. When construction
// fails the server still starts and answers ask requests with 503.
func provideFAQService(cfg *config.Config, logger *slog.Logger) (faq.Service, func()) {
	matcher, cleanup, err := bootstrap.BuildMatcher(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("faq matcher unavailable, serving degraded", "corpus", cfg.Corpus.Kind, "encoder", cfg.Encoder.Kind, "error", err)
		return faq.NewUnavailableService(err, logger), cleanup
	}
	logger.Info("faq matcher ready", "entries", matcher.Size(), "dimension", matcher.Dimension(), "threshold", cfg.FAQ.Threshold)
	return faq.NewService(matcher, logger), cleanup
}
