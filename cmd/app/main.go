package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initializeApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "faq-matcher: startup failed: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	cleanup()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "faq-matcher: server stopped: %v\n", runErr)
		os.Exit(1)
	}
}
