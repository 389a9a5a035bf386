package main

import (
	"fmt"
	"os"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/homegame/cmd/homegame/shared"
	"github.com/lox/homegame/internal/roomcode"
	"github.com/lox/homegame/internal/server"
)

// ServerCmd runs the WebSocket server
type ServerCmd struct {
	Config   string `short:"c" default:"homegame.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Address to bind to (overrides config)"`
	Port     int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     *int64 `help:"Deterministic seed for room codes (optional)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := loadServerConfig(c.Config)
	if err != nil {
		return err
	}

	// Apply command line overrides
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := shared.SetupLogger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic room code seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()

	logger.Info("Starting home game server",
		"addr", cfg.Address(),
		"maxRooms", cfg.Rooms.MaxRooms,
		"bigBlind", cfg.Rooms.BigBlind,
		"idleTimeout", cfg.Rooms.IdleTimeout)

	srv := server.NewServer(cfg, logger,
		server.WithClock(quartz.NewReal()),
		server.WithCodeGenerator(roomcode.New(cfg.Rooms.CodeLength, seed)),
	)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func loadServerConfig(path string) (*server.Config, error) {
	cfg, err := server.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}
