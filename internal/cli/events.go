package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <id>",
		Short: "Stream live events from a session",
		Long: `Connect to the session's event stream and print events as they arrive.

Events include:
  - player_joined: An entrant joined
  - phase_changed: The session moved to a new phase
  - paused / resumed: The phase timer was frozen or restarted
  - session_reset: The session returned to idle
  - slots_committed: A player committed an array
  - hand_changed: A hand was dealt, refreshed or raided
  - extraction_resolved: A winner took or declined a card

Events are hints: re-fetch the session view for authoritative state.
Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// StreamEvent is one event read off the stream
type StreamEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, sessionID string, jsonOutput bool) error {
	body, err := client.Stream(ctx, "/api/v1/sessions/"+sessionID+"/events")
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if !jsonOutput {
		fmt.Printf("Connected to session %s\n", sessionID)
	}

	err = readEvents(body, func(evt StreamEvent) {
		evt.Time = time.Now()
		printEvent(evt, jsonOutput)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}

// readEvents parses text/event-stream framing until r is exhausted.
// Comment lines are keepalives and are skipped.
func readEvents(r io.Reader, emit func(StreamEvent)) error {
	scanner := bufio.NewScanner(r)
	var event string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if event != "" {
				emit(StreamEvent{Event: event, Data: strings.Join(data, "\n")})
			}
			event, data = "", nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printEvent(evt StreamEvent, jsonOutput bool) {
	if jsonOutput {
		line, _ := json.Marshal(evt)
		fmt.Println(string(line))
		return
	}

	data := strings.ReplaceAll(evt.Data, "\n", " ")
	if len(data) > 100 {
		data = data[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", evt.Time.Format("15:04:05"), evt.Event, data)
}
