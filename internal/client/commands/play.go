package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// PlayCommand runs an interactive line-based session against a room
type PlayCommand struct {
	Create bool   `help:"Create a room on connect and deal as its dealer"`
	Join   string `help:"Join the room with this code on connect"`
}

func (cmd *PlayCommand) Run(flags *GlobalFlags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsClient, cfg, logger, cleanup, err := SetupClient(ctx, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Starting home game client", "server", cfg.Server.URL, "player", cfg.Player.Name)

	renderer := NewRenderer(os.Stdout)
	wsClient.OnAnyMessage(renderer.Handle)

	fmt.Printf("Connected to %s\n", cfg.Server.URL)
	fmt.Println(`Type "help" for commands.`)

	var initial []string
	switch {
	case cmd.Create:
		initial = append(initial, "create")
	case cmd.Join != "":
		initial = append(initial, "join "+cmd.Join)
	}

	s := &Session{
		Sender:  wsClient,
		Name:    cfg.Player.Name,
		Resolve: renderer.Resolve,
		Out:     os.Stdout,
	}
	return s.Run(ctx, initial, os.Stdin, wsClient.Done())
}

// Session reads commands line by line and sends them to the server
type Session struct {
	Sender  Sender
	Name    string
	Resolve func(string) string
	Out     io.Writer
}

// Run executes the initial lines, then reads from in until EOF, "quit", ctx
// cancellation or the connection closing.
func (s *Session) Run(ctx context.Context, initial []string, in io.Reader, closed <-chan struct{}) error {
	for _, line := range initial {
		if err := s.execute(line); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			_, _ = fmt.Fprintln(s.Out, "Disconnected from server.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.execute(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// execute runs one line. Only ErrQuit and send failures are returned; parse
// errors are printed.
func (s *Session) execute(line string) error {
	action, err := ParseLine(line, s.Name, s.Resolve)
	switch {
	case errors.Is(err, ErrEmpty):
		return nil
	case errors.Is(err, ErrHelp):
		_, _ = fmt.Fprintln(s.Out, Usage)
		return nil
	case errors.Is(err, ErrQuit):
		return err
	case err != nil:
		_, _ = fmt.Fprintln(s.Out, err)
		return nil
	}

	if err := action(s.Sender); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}
