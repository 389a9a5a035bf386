package main

import (
	"github.com/lox/homegame/internal/client/commands"
)

// ClientCmd groups the client subcommands, which share connection flags
type ClientCmd struct {
	commands.GlobalFlags `embed:""`

	Play  commands.PlayCommand  `cmd:"" default:"withargs" help:"Play interactively from the terminal"`
	Rooms commands.RoomsCommand `cmd:"" help:"List the rooms open on the server"`
}
