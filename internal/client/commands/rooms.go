package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lox/homegame/internal/client"
	"github.com/lox/homegame/internal/server"
)

// RoomsCommand lists the rooms open on the server
type RoomsCommand struct {
	JSON bool `help:"Print the raw JSON listing"`
}

func (cmd *RoomsCommand) Run(flags *GlobalFlags) error {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeoutDuration())
	defer cancel()

	rooms, err := FetchRooms(ctx, http.DefaultClient, cfg.Server.URL)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rooms)
	}
	return PrintRooms(os.Stdout, rooms, time.Now())
}

// FetchRooms reads the room listing from the server's /rooms endpoint
func FetchRooms(ctx context.Context, httpClient *http.Client, serverURL string) ([]server.RoomSummary, error) {
	roomsURL, err := client.HTTPURL(serverURL, "/rooms")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roomsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list rooms: server returned %s", resp.Status)
	}

	var rooms []server.RoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("failed to decode room list: %w", err)
	}
	return rooms, nil
}

// PrintRooms writes a table of rooms, with idle times relative to now
func PrintRooms(w io.Writer, rooms []server.RoomSummary, now time.Time) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "No rooms open")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CODE\tPHASE\tSEATS\tHANDS\tIDLE")
	for _, r := range rooms {
		idle := now.Sub(r.LastActive).Truncate(time.Second)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Code, r.Phase, r.Seats, r.HandNumber, idle)
	}
	return tw.Flush()
}
