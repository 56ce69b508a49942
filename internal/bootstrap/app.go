package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
)

const defaultShutdownTimeout = 10 * time.Second

// App owns the HTTP server and the FAQ service it fronts.
type App struct {
	server          *http.Server
	faqSvc          faq.Service
	shutdownTimeout time.Duration
	logger          *slog.Logger
	ready           chan net.Addr
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, faqSvc faq.Service) *App {
	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &App{
		server:          server,
		faqSvc:          faqSvc,
		shutdownTimeout: timeout,
		logger:          logger.With("component", "bootstrap"),
		ready:           make(chan net.Addr, 1),
	}
}

// Listening yields the bound address once the server accepts connections.
func (a *App) Listening() <-chan net.Addr {
	return a.ready
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	if a.faqSvc.Ready() {
		a.logger.Info("http server starting", "address", ln.Addr().String(), "corpus_size", a.faqSvc.CorpusSize())
	} else {
		a.logger.Warn("http server starting without a matcher, /ask will answer 503", "address", ln.Addr().String())
	}
	a.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received", "timeout", a.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
