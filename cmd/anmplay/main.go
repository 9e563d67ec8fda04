// anmplay loads a model and plays its animations headlessly, logging the
// play-head and posed joint positions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/lolanim/internal/config"
	"github.com/Faultbox/lolanim/internal/logger"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithOptions(cfg.Logging.Options())
	defer logger.Sync()

	logger.Info("=== anmplay ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newSession(cfg, logger.Named("play"))
	if err != nil {
		logger.Error("failed to load model", zap.Error(err))
		os.Exit(1)
	}
	defer s.Close()

	summary, err := s.Run(ctx)
	if err != nil {
		logger.Error("playback stopped", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(summary)
}
