package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/wordduel/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.CreateSessionResponse:
		o.printCreated(v)
	case response.JoinResponse:
		fmt.Fprintf(o.w, "Joined as player %d\n", v.PlayerIndex)
	case response.SuccessResponse:
		fmt.Fprintln(o.w, v.Message)
	case response.GuessResult:
		o.printGuess(v)
	case response.SessionState:
		o.printState(v)
	case response.Health:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printCreated(c response.CreateSessionResponse) {
	fmt.Fprintf(o.w, "Session: %s\n", c.SessionKey)
	fmt.Fprintf(o.w, "Word Length: %d\n", c.WordLength)
	fmt.Fprintf(o.w, "Max Attempts: %d\n", c.MaxAttempts)
}

func (o *Output) printGuess(g response.GuessResult) {
	fmt.Fprintf(o.w, "%s  %s\n", g.Guess, FeedbackString(g.Feedback))
	if g.IsWinningGuess {
		fmt.Fprintf(o.w, "Player %d wins!\n", g.PlayerIndex)
	}
}

func (o *Output) printState(s response.SessionState) {
	fmt.Fprintf(o.w, "Session: %s\n", s.SessionKey)
	fmt.Fprintf(o.w, "Phase: %s\n", s.Phase)
	fmt.Fprintf(o.w, "Word Length: %d\n", s.WordLength)
	if s.CurrentTurn != nil && *s.CurrentTurn < len(s.Players) {
		fmt.Fprintf(o.w, "Turn: %s\n", s.Players[*s.CurrentTurn])
	}

	fmt.Fprintf(o.w, "Players (%d):\n", len(s.Players))
	for i, p := range s.Players {
		fmt.Fprintf(o.w, "  %d. %s\n", i, p)
	}

	if len(s.Guesses) > 0 {
		fmt.Fprintln(o.w, "\nGuesses:")
		for _, g := range s.Guesses {
			name := fmt.Sprintf("player %d", g.PlayerIndex)
			if g.PlayerIndex < len(s.Players) {
				name = s.Players[g.PlayerIndex]
			}
			fmt.Fprintf(o.w, "  %-12s %s  %s\n", name, g.Guess, FeedbackString(g.Feedback))
		}
	}
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Storage != "" {
		fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	}
}

// FeedbackString renders feedback one symbol per letter:
// '=' correct, '~' present, '.' absent
func FeedbackString(feedback []string) string {
	var b strings.Builder
	for _, f := range feedback {
		switch f {
		case "correct":
			b.WriteByte('=')
		case "present":
			b.WriteByte('~')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}
