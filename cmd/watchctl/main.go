package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ictlabs/watchctl/internal/command"
	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchctl: %v\n", err)
		os.Exit(command.ExitInvalidConfig)
	}
	if path := os.Getenv("WATCHCTL_CONFIG"); path != "" {
		cfg, err = applyFileConfig(cfg, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watchctl: %v\n", err)
			os.Exit(command.ExitInvalidConfig)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := buildRegistry(cfg)
	status, err := command.Dispatch(ctx, reg, command.Resolve(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchctl: %v\n", err)
	}
	os.Exit(status)
}
