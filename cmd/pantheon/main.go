// pantheon: command-line tool for Pantheon command groups
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/pantheon"
	"github.com/agilira/pantheon/cmd/cli"
	"github.com/charmbracelet/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "pantheon"})
	if os.Getenv("PANTHEON_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := pantheon.LoadSettingsFromEnv()
	if err != nil {
		logger.Error("invalid settings", "err", err)
		return 2
	}

	reg, err := pantheon.NewRegistryFromSettings(settings)
	if err != nil {
		logger.Error("failed to create registry", "err", err)
		return 2
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("failed to close audit trail", "err", err)
		}
	}()

	manager, err := cli.NewManager(ctx, reg, cli.WithLogger(logger))
	if err != nil {
		logger.Error("failed to declare commands", "err", err)
		return 2
	}

	if err := manager.Run(os.Args[1:]); err != nil {
		logger.Error(err)
		return 1
	}
	return 0
}
