// cmd/bot/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"discord-slowmode-bot/internal/bot"
	"discord-slowmode-bot/internal/config"
	"discord-slowmode-bot/internal/database"
	"discord-slowmode-bot/internal/slowmode"
	"discord-slowmode-bot/internal/tasks"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewDB(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Initialize decision engine and bot handler
	engine := slowmode.NewEngine(db)
	handler := bot.NewHandler(db, logger)

	// Create Discord session
	discord, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Error("error creating Discord session", "error", err)
		os.Exit(1)
	}

	handler.SetSession(discord)
	discord.AddHandler(handler.OnMessageCreate)

	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	// Open connection
	if err := discord.Open(); err != nil {
		logger.Error("error opening Discord connection", "error", err)
		os.Exit(1)
	}
	defer discord.Close()

	if err := handler.RegisterCommands(); err != nil {
		logger.Error("failed to register commands", "error", err)
		os.Exit(1)
	}

	// Start background tasks
	ctx, cancel := context.WithCancel(context.Background())
	runner := tasks.NewRunner(discord, db, engine, logger)
	runner.Start(ctx)

	logger.Info("adaptive slowmode bot is running")

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()
	runner.Wait()
}
