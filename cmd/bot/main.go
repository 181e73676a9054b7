package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/presencewatch/internal/bot"
	"github.com/robalyx/presencewatch/internal/bot/commands"
	"github.com/robalyx/presencewatch/internal/health"
	"github.com/robalyx/presencewatch/internal/notify"
	"github.com/robalyx/presencewatch/internal/setup"
	"github.com/robalyx/presencewatch/internal/tracker"
	"github.com/robalyx/presencewatch/internal/tracker/core"
	"github.com/robalyx/presencewatch/pkg/utils"
	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"

	// restartDelay is how long a crashed tracker waits before starting again.
	restartDelay = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Start the presence tracking bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-dir",
				Value: BotLogDir,
				Usage: "Directory for log sessions",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Value: true,
				Usage: "Apply pending database migrations on startup",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return startBot(ctx, c.String("log-dir"), c.Bool("migrate"))
		},
	}

	return app.Run(context.Background(), os.Args)
}

// startBot wires every component and blocks until ctx is cancelled.
func startBot(ctx context.Context, logDir string, autoMigrate bool) error {
	app, err := setup.InitializeApp(ctx, logDir, autoMigrate)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	logger := app.Logger
	store := app.DB.Model()

	logger.Info("Log session started",
		zap.String("dir", app.LogManager.GetCurrentSessionDir()),
		zap.String("instance", app.LogManager.GetInstanceID()))

	discordBot, err := bot.New(app.Config.Bot.Discord.Token, app.Config.Bot.Discord.DevGuildID, logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	dispatcher := notify.NewDispatcher(notify.NewRestClient(discordBot.Rest()), logger)

	var (
		statusLister commands.StatusLister
		reporter     *core.StatusReporter
	)

	if app.StatusClient != nil {
		statusLister = core.NewMonitor(app.StatusClient, logger)
		reporter = core.NewStatusReporter(app.StatusClient, tracker.WorkerType, logger)
	}

	discordBot.SetService(commands.NewService(store, app.Statuses.Users(), dispatcher, statusLister, logger))

	opts, err := tracker.OptionsFromConfig(&app.Config.Bot.Tracker)
	if err != nil {
		return err
	}

	workerLogger := app.LogManager.GetWorkerLogger("tracker_worker")
	worker := tracker.New(store, app.Statuses, dispatcher, reporter, opts, workerLogger)

	if err := discordBot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	var wg conc.WaitGroup

	if app.Config.Bot.Health.Enabled {
		server := health.NewServer(app.Config.Bot.Health.Port, logger)

		wg.Go(func() {
			if err := server.Run(ctx); err != nil {
				logger.Error("Health server stopped", zap.Error(err))
			}
		})
	}

	wg.Go(func() {
		runWorker(ctx, worker, discordBot.Ready(), workerLogger)
	})

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	discordBot.Close(closeCtx)

	if r := wg.WaitAndRecover(); r != nil {
		logger.Error("Background task panicked", zap.String("panic", r.String()))
	}

	return nil
}

// runWorker runs the tracker in a loop with panic recovery until ctx ends.
func runWorker(ctx context.Context, w *tracker.Worker, ready <-chan struct{}, logger *zap.Logger) {
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed", zap.Any("panic", r))
				}
			}()

			logger.Info("Starting worker")
			w.Start(ctx, ready)
		}()

		if ctx.Err() != nil {
			logger.Info("Context cancelled, stopping worker")
			return
		}

		logger.Warn("Worker stopped unexpectedly, restarting", zap.Duration("delay", restartDelay))

		if !utils.ErrorSleep(ctx, restartDelay, logger, "tracker") {
			return
		}
	}
}
