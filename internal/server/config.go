package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/homegame/internal/game"
	"github.com/lox/homegame/internal/roomcode"
)

// Config represents the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Rooms  *RoomSettings   `hcl:"rooms,block"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address        string   `hcl:"address,optional"`
	Port           int      `hcl:"port,optional"`
	LogLevel       string   `hcl:"log_level,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
}

// RoomSettings bounds the rooms the server will host
type RoomSettings struct {
	MaxRooms      int    `hcl:"max_rooms,optional"`
	MaxSeats      int    `hcl:"max_seats,optional"`
	BigBlind      int    `hcl:"big_blind,optional"`
	MaxBet        int    `hcl:"max_bet,optional"`
	CodeLength    int    `hcl:"code_length,optional"`
	MaxNameLength int    `hcl:"max_name_length,optional"`
	QueueSize     int    `hcl:"queue_size,optional"`
	IdleTimeout   string `hcl:"idle_timeout,optional"`
	ReapInterval  string `hcl:"reap_interval,optional"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Rooms == nil {
		c.Rooms = &RoomSettings{}
	}
	r := c.Rooms
	if r.MaxRooms == 0 {
		r.MaxRooms = 1000
	}
	if r.MaxSeats == 0 {
		r.MaxSeats = game.DefaultOptions().MaxSeats
	}
	if r.BigBlind == 0 {
		r.BigBlind = game.DefaultOptions().BigBlind
	}
	if r.CodeLength == 0 {
		r.CodeLength = roomcode.DefaultLength
	}
	if r.MaxNameLength == 0 {
		r.MaxNameLength = 24
	}
	if r.QueueSize == 0 {
		r.QueueSize = 64
	}
	if r.IdleTimeout == "" {
		r.IdleTimeout = "2h"
	}
	if r.ReapInterval == "" {
		r.ReapInterval = "1m"
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server == nil || c.Rooms == nil {
		return errors.New("configuration has not been loaded")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}

	r := c.Rooms
	if r.MaxRooms < 1 {
		return fmt.Errorf("max_rooms must be positive, got %d", r.MaxRooms)
	}
	if r.MaxSeats < 2 {
		return fmt.Errorf("max_seats must be at least 2, got %d", r.MaxSeats)
	}
	if r.BigBlind < 1 || r.BigBlind > game.MaxPot {
		return fmt.Errorf("big_blind must be between 1 and %d, got %d", game.MaxPot, r.BigBlind)
	}
	if r.MaxBet < 0 {
		return fmt.Errorf("max_bet cannot be negative, got %d", r.MaxBet)
	}
	if r.MaxBet > 0 && r.MaxBet < r.BigBlind {
		return fmt.Errorf("max_bet %d is below the big blind %d", r.MaxBet, r.BigBlind)
	}
	if r.CodeLength < roomcode.MinLength || r.CodeLength > roomcode.MaxLength {
		return fmt.Errorf("code_length must be between %d and %d, got %d",
			roomcode.MinLength, roomcode.MaxLength, r.CodeLength)
	}
	if r.MaxNameLength < 1 {
		return fmt.Errorf("max_name_length must be positive, got %d", r.MaxNameLength)
	}
	if r.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive, got %d", r.QueueSize)
	}

	idle, err := time.ParseDuration(r.IdleTimeout)
	if err != nil {
		return fmt.Errorf("invalid idle_timeout: %w", err)
	}
	reap, err := time.ParseDuration(r.ReapInterval)
	if err != nil {
		return fmt.Errorf("invalid reap_interval: %w", err)
	}
	if idle < 0 {
		return fmt.Errorf("idle_timeout cannot be negative, got %s", idle)
	}
	if reap <= 0 {
		return fmt.Errorf("reap_interval must be positive, got %s", reap)
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// RoomOptions returns the betting rules every new room gets.
func (r *RoomSettings) RoomOptions() game.Options {
	return game.Options{
		BigBlind: r.BigBlind,
		MaxSeats: r.MaxSeats,
		MaxBet:   r.MaxBet,
	}
}

// IdleTimeoutDuration returns how long a room may go without a command before
// the reaper closes it. Zero disables reaping.
func (r *RoomSettings) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(r.IdleTimeout)
	return d
}

// ReapIntervalDuration returns how often idle rooms are looked for.
func (r *RoomSettings) ReapIntervalDuration() time.Duration {
	d, err := time.ParseDuration(r.ReapInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
