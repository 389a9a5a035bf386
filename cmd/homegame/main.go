package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Server      ServerCmd        `cmd:"" help:"Run the home game server"`
	Client      ClientCmd        `cmd:"" help:"Connect to a server as a dealer or player"`
	CheckConfig CheckConfigCmd   `cmd:"check-config" help:"Validate a server configuration file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("homegame"),
		kong.Description("Dealer-assisted home poker rooms over WebSockets"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Client.GlobalFlags)
	ctx.FatalIfErrorf(err)
}
