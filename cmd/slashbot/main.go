package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UTD-JLA/slashbot/internal/bot"
	"github.com/UTD-JLA/slashbot/internal/bot/commands"
	"github.com/UTD-JLA/slashbot/internal/config"
	"github.com/UTD-JLA/slashbot/internal/guilds"
	"github.com/UTD-JLA/slashbot/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jackc/pgx/v5/pgxpool"
)

var configPath = flag.String("config", "", "Path to config file")
var migrationSource = flag.String("migrations", "", "Path to migrations")

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.NewConfig()

	if err := cfg.Load(*configPath); err != nil {
		return err
	}

	logs, err := logging.New(logging.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	defer logs.Close()

	logger := logs.Named("main")
	startedAt := time.Now()

	pingPermissions := bot.PermissionsFunc(commands.OwnerOnly)

	if cfg.DatabaseURL != "" {
		if *migrationSource != "" {
			logger.Info("Running migrations")

			if err = runMigrations(*migrationSource, cfg.DatabaseURL); err != nil {
				logger.Fatal("Failed to run migrations", "error", err)
				return err
			}
		}

		logger.Info("Connecting to database")

		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
			return err
		}

		defer pool.Close()

		pingPermissions = guilds.NewGrantRepository(pool).Resolver("ping")
	}

	b, err := bot.NewBot(cfg, logs, bot.WithDestroyCommandsOnClose(cfg.DestroyCommandsOnClose))
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
		return err
	}

	logger.Info("Logging in")

	if err = b.Start(); err != nil {
		logger.Fatal("Failed to log in", "error", err)
		return err
	}

	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Failed to close bot", "error", err)
		}
	}()

	err = b.AddCommands(
		context.Background(),
		commands.NewPingCommand(pingPermissions),
		commands.NewAboutCommand(startedAt),
		commands.NewEchoCommand(),
	)

	if err != nil {
		logger.Error("Failed to register some commands", "error", err)
	}

	// Wait here until CTRL-C or other term signal is received.
	logger.Info("Bot is now running. Press CTRL-C to exit")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-c

	return nil
}

func runMigrations(source, databaseURL string) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return err
	}

	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
