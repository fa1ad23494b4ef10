// Command streamgraphd runs the folder-fed, tag-routed stream
// processing engine as a standalone process.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/streamgraph/engine/internal/app"
	"github.com/streamgraph/engine/internal/config"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to the process configuration file (YAML)")
	flag.Parse()

	if configFile == "" {
		configFile = os.Getenv("STREAMGRAPH_CONFIG_FILE")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.WithError(err).Error("application exited with error")
		os.Exit(1)
	}
}
