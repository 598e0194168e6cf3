package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"mmtools/client"
	"mmtools/projection"
	"mmtools/runtime/workers"
	"mmtools/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and centralizes error reporting, so that
// deferred cleanup executes before the process exits and the wiring stays
// testable apart from the entry point.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Rendering dialect
	render, err := projection.New(config.Format, projection.Config{
		Prefix:       config.Prefix,
		Ignore:       config.IgnorePattern(),
		ChannelColor: config.ChannelColor,
		UserColor:    config.UserColor,
	})
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// 3. Remote client & services
	remote := client.New(log, client.Options{
		Server:             config.Server,
		Port:               config.Port,
		Username:           config.Username,
		Password:           config.Password,
		Team:               config.Team,
		InsecureSkipVerify: config.InsecureSkipVerify,
	})
	users := services.NewUserCache(log, remote)
	channels := services.NewChannelService(log, remote, users)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// i3blocks invokes its blocklets once per refresh, so that dialect
	// performs a single cycle; the streaming dialects loop until signaled.
	oneShot := config.Format == projection.FormatI3blocks
	status := workers.NewStatusWorker(
		log, remote, channels, render, os.Stdout, config.RefreshInterval, oneShot,
	)

	if oneShot {
		return status.Run(ctx)
	}

	// 5. Supervised polling loop
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(status)
	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("status loop failed: %w", err)
	}

	log.Info("Program stopped cleanly")
	return nil
}
