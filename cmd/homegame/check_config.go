package main

import (
	"fmt"
	"os"
)

// CheckConfigCmd loads and validates a server configuration file without
// starting the server
type CheckConfigCmd struct {
	Config string `arg:"" default:"homegame.hcl" help:"Path to HCL configuration file"`
}

func (c *CheckConfigCmd) Run() error {
	if _, err := os.Stat(c.Config); err != nil {
		return fmt.Errorf("cannot read %s: %w", c.Config, err)
	}

	cfg, err := loadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("%s is valid\n", c.Config)
	fmt.Printf("  listen:        %s\n", cfg.Address())
	fmt.Printf("  log level:     %s\n", cfg.Server.LogLevel)
	fmt.Printf("  rooms:         up to %d, %d seats each\n", cfg.Rooms.MaxRooms, cfg.Rooms.MaxSeats)
	fmt.Printf("  big blind:     %d\n", cfg.Rooms.BigBlind)
	if cfg.Rooms.MaxBet > 0 {
		fmt.Printf("  max bet:       %d\n", cfg.Rooms.MaxBet)
	}
	fmt.Printf("  idle timeout:  %s\n", cfg.Rooms.IdleTimeoutDuration())
	return nil
}
