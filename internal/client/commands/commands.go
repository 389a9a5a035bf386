package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/homegame/internal/client"
	"github.com/lox/homegame/internal/server"
)

// GlobalFlags holds common configuration for all commands
type GlobalFlags struct {
	Config   string        `short:"c" long:"config" default:"homegame-client.hcl" help:"Path to HCL configuration file"`
	Server   string        `short:"s" long:"server" help:"Server URL to connect to (overrides config)"`
	Player   string        `short:"p" long:"player" help:"Player name (overrides config)"`
	LogLevel string        `short:"l" long:"log-level" help:"Log level (overrides config)"`
	LogFile  string        `long:"log-file" help:"Log file path (overrides config)"`
	Wait     time.Duration `help:"Wait up to this long for the server to report healthy before connecting"`
}

// LoadConfig loads the client configuration and applies command line overrides
func LoadConfig(flags *GlobalFlags) (*client.ClientConfig, error) {
	cfg, err := client.LoadClientConfig(flags.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	// Apply command line overrides
	if flags.Server != "" {
		cfg.Server.URL = flags.Server
	}
	if flags.Player != "" {
		cfg.Player.Name = flags.Player
	}
	if flags.LogLevel != "" {
		cfg.UI.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.UI.LogFile = flags.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SetupClient creates and connects a client with the given configuration.
// The returned cleanup disconnects the client and closes any log file.
func SetupClient(ctx context.Context, flags *GlobalFlags) (*client.Client, *client.ClientConfig, *log.Logger, func(), error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var logWriter io.Writer = os.Stderr
	closeLog := func() {}
	if cfg.UI.LogFile != "" {
		// Setup logging to file (overwrite each time)
		logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logWriter = logFile
		closeLog = func() { _ = logFile.Close() }
	}

	logger := newLogger(logWriter, cfg.UI.LogLevel)

	if flags.Wait > 0 {
		if err := waitForServer(ctx, cfg.Server.URL, flags.Wait); err != nil {
			closeLog()
			return nil, nil, nil, nil, err
		}
	}

	wsClient := client.NewClient(cfg.Server.URL, logger)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeoutDuration())
	defer cancel()
	if err := wsClient.Connect(dialCtx); err != nil {
		closeLog()
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	cleanup := func() {
		_ = wsClient.Disconnect()
		closeLog()
	}
	return wsClient, cfg, logger, cleanup, nil
}

func waitForServer(ctx context.Context, serverURL string, wait time.Duration) error {
	base, err := client.HTTPURL(serverURL, "")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return server.WaitForHealthy(ctx, base)
}

func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.New(w)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel // Default to warn to reduce noise
	}
	logger.SetLevel(lvl)
	return logger
}
