package faq

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
	"github.com/yanqian/faq-matcher/pkg/util"
)

// Service exposes FAQ answering to transports.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
	Ready() bool
	CorpusSize() int
}

type service struct {
	matcher *Matcher
	initErr error
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wraps a ready matcher.
func NewService(matcher *Matcher, logger *slog.Logger) Service {
	return &service{
		matcher: matcher,
		logger:  logger.With("component", "faq.service"),
		now:     time.Now,
	}
}

// NewUnavailableService returns a service that rejects every query because the
// matcher could not be built. cause is reported back to callers.
func NewUnavailableService(cause error, logger *slog.Logger) Service {
	return &service{
		initErr: cause,
		logger:  logger.With("component", "faq.service"),
		now:     time.Now,
	}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	if s.matcher == nil {
		return Response{}, apperrors.Wrap(CodeServiceUnavailable, "faq matcher unavailable", s.initErr)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, apperrors.Wrap(CodeInvalidInput, "query cannot be empty", nil)
	}

	start := s.now()
	result := s.matcher.Match(ctx, query)
	elapsedMs := util.MillisSince(start, s.now())

	// query text stays out of the logs
	s.logger.Info("faq query processed", "score", result.Score, "outcome", result.Outcome, "latency_ms", elapsedMs)

	return Response{
		Response:        result.Answer,
		Confidence:      result.Score,
		MatchedQuestion: result.MatchedQuestion,
		Outcome:         result.Outcome,
		DurationMs:      elapsedMs,
	}, nil
}

func (s *service) Ready() bool {
	return s.matcher != nil
}

func (s *service) CorpusSize() int {
	if s.matcher == nil {
		return 0
	}
	return s.matcher.Size()
}
