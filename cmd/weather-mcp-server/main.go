package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/shaharia-lab/weather-mcp-server/config"
	"github.com/shaharia-lab/weather-mcp-server/mcp"
	"github.com/shaharia-lab/weather-mcp-server/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Stdout carries the JSON-RPC wire; everything else goes to stderr.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	baseServer, err := mcp.NewBaseServer(
		mcp.UseLogger(mcp.NewLogrusLogger(logger)),
		mcp.UseServerInfo(cfg.ServerName, cfg.ServerVersion),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	store := weather.NewStore()
	if err := baseServer.AddResources(weather.Resources(store)...); err != nil {
		logger.WithError(err).Fatal("Failed to register resources")
	}
	if err := baseServer.AddTools(weather.Tools(store)...); err != nil {
		logger.WithError(err).Fatal("Failed to register tools")
	}
	if err := baseServer.AddPrompts(weather.Prompts(store)...); err != nil {
		logger.WithError(err).Fatal("Failed to register prompts")
	}

	logger.WithFields(logrus.Fields{
		"server":      cfg.ServerName,
		"version":     cfg.ServerVersion,
		"api_key_set": cfg.WeatherAPIKey != "",
	}).Info("Starting weather MCP server on stdio")

	server := mcp.NewStdIOServer(baseServer, os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Server terminated with error")
		os.Exit(1)
	}
}
