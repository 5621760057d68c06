package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// errStop ends a stream once enough events have been printed
var errStop = errors.New("stop streaming")

func newEventsCmd(st *state) *cobra.Command {
	var (
		useWS bool
		count int
	)

	cmd := &cobra.Command{
		Use:   "events <key>",
		Short: "Stream live events from a session",
		Long: `Connect to the session's event stream and print events as they arrive.

Events:
  - state: full session snapshot (sent on connect and after every change)
  - guess-result: outcome of a guess

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printer := &eventPrinter{
				w:     cmd.OutOrStdout(),
				json:  st.cfg.Output == "json",
				limit: count,
			}

			var err error
			if useWS {
				err = streamWebSocket(ctx, st.client, args[0], printer)
			} else {
				err = streamSSE(ctx, st.client, args[0], printer)
			}
			if errors.Is(err, errStop) || ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&useWS, "ws", false, "Use the WebSocket stream instead of SSE")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0: stream until interrupted)")

	return cmd
}

// StreamEvent is one printed event
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type eventPrinter struct {
	w     io.Writer
	json  bool
	limit int
	seen  int

	// Highest state version printed so far
	stateVersion int64
}

// print writes one event and returns errStop once the limit is reached.
// State snapshots no newer than one already printed are skipped.
func (p *eventPrinter) print(event string, data []byte) error {
	if event == "state" {
		var snapshot struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(data, &snapshot); err == nil && snapshot.Version > 0 {
			if snapshot.Version <= p.stateVersion {
				return nil
			}
			p.stateVersion = snapshot.Version
		}
	}

	now := time.Now()

	if p.json {
		line, _ := json.Marshal(StreamEvent{Time: now, Event: event, Data: json.RawMessage(data)})
		fmt.Fprintln(p.w, string(line))
	} else {
		timestamp := now.Format("2006-01-02 15:04:05")
		// Truncate data if it's too long for display
		displayData := string(data)
		if len(displayData) > 100 {
			displayData = displayData[:100] + "..."
		}
		displayData = strings.ReplaceAll(displayData, "\n", " ")
		fmt.Fprintf(p.w, "[%s] %s: %s\n", timestamp, event, displayData)
	}

	p.seen++
	if p.limit > 0 && p.seen >= p.limit {
		return errStop
	}
	return nil
}

func streamSSE(ctx context.Context, client *Client, key string, printer *eventPrinter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.URL(sessionPath(key, "/events")), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// The connected handshake is not a session event
			if currentEvent != "" && currentEvent != "connected" {
				if err := printer.print(currentEvent, []byte(strings.Join(dataLines, "\n"))); err != nil {
					return err
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// wsFrame mirrors the server's WebSocket envelope
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func streamWebSocket(ctx context.Context, client *Client, key string, printer *eventPrinter) error {
	wsURL := client.URL(sessionPath(key, "/ws"))
	wsURL = "ws" + strings.TrimPrefix(wsURL, "http")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadJSON on interrupt
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		if err := printer.print(frame.Event, frame.Data); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return err
		}
	}
}
