package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"mmtools/client"
	"mmtools/domain"
	errs "mmtools/errors"
	"mmtools/runtime"
	"mmtools/runtime/workers"
	"mmtools/services"
)

// connectRetryDelay paces session-establishment attempts while the remote
// service is unreachable at startup.
const connectRetryDelay = 5 * time.Second

// restartDelay paces watcher restarts after a dropped event stream.
const restartDelay = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

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

	// 2. Remote client
	remote := client.New(log, client.Options{
		Server:             config.Server,
		Port:               config.Port,
		Username:           config.Username,
		Password:           config.Password,
		Team:               config.Team,
		InsecureSkipVerify: config.InsecureSkipVerify,
	})

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Session (retried while the server is unreachable)
	ses, err := connect(ctx, log, remote)
	if err != nil {
		return err
	}
	log.Info("Connected", "user", ses.Username)

	// 5. Supervised event watcher
	users := services.NewUserCache(log, remote)
	watcher := workers.NewWatchWorker(
		log, remote, users, runtime.DesktopNotifier{}, runtime.ProcessTable{},
		ses.UserID,
		workers.WatchOptions{
			Prefix:        config.Prefix,
			Ignore:        config.IgnorePattern(),
			DisableNotify: config.DisableNotify,
			SignalTarget:  config.SignalTarget,
			Signal:        syscall.SIGUSR2,
		},
	)

	// The supervisor restarts the watcher whenever the stream drops; each
	// restart dials a fresh websocket over the established session.
	sup := workers.NewSupervisor(log, restartDelay)
	sup.Add(watcher)
	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("watch loop failed: %w", err)
	}

	log.Info("Program stopped cleanly")
	return nil
}

// connect establishes the session, retrying forever while the remote
// service is merely unreachable. Any other failure (such as rejected
// credentials) is returned to the caller.
func connect(ctx context.Context, log *slog.Logger, remote *client.Client) (domain.Session, error) {
	for {
		ses, err := remote.Connect(ctx)
		if err == nil {
			return ses, nil
		}
		if !errors.Is(err, errs.ErrRemoteUnavailable) {
			return domain.Session{}, fmt.Errorf("connecting: %w", err)
		}

		log.Warn("Connection failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return domain.Session{}, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
}
