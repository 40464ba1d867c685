// Command sportdb runs the football data pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/inattention/sportdata/pkg/logger"
)

func main() {
	level := zap.NewAtomicLevel()
	lggr, err := logger.NewWith(func(cfg *zap.Config) {
		cfg.Level = level
		if enc := os.Getenv("SPORTDATA_LOG_ENCODING"); enc != "" {
			cfg.Encoding = enc
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = lggr.Sync() }()

	root, err := newRootCmd(lggr, level)
	if err != nil {
		lggr.Errorw("Failed to build commands", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = lggr.Sync()
		os.Exit(1)
	}
}
