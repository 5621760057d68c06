package model

// EventType identifies the kind of notification pushed to session subscribers
type EventType string

const (
	EventState       EventType = "state"
	EventGuessResult EventType = "guess-result"
)

// GuessResult is the outcome of one guess as shown to players
type GuessResult struct {
	Guess          string
	Feedback       []LetterState
	PlayerIndex    int
	IsWinningGuess bool
}

// GuessResultFromRecord builds the public view of a stored guess
func GuessResultFromRecord(g GuessRecord) GuessResult {
	return GuessResult{
		Guess:          g.Word,
		Feedback:       append([]LetterState(nil), g.Feedback...),
		PlayerIndex:    g.PlayerIndex,
		IsWinningGuess: g.IsWin(),
	}
}

// SessionState is a read-only snapshot of a session. It never carries secrets.
type SessionState struct {
	Key         SessionKey
	Phase       Phase
	CurrentTurn *int
	WordLength  int
	MaxAttempts int
	Players     []string
	Guesses     []GuessResult

	// Version increases with every committed change; subscribers can drop
	// snapshots older than one they already hold
	Version int64
}

// StateFromSession assembles the public snapshot of a session
func StateFromSession(s *Session) SessionState {
	players := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		name := p.DisplayName
		if name == "" {
			name = string(p.ClientID)
		}
		players[i] = name
	}

	guesses := make([]GuessResult, len(s.Guesses))
	for i, g := range s.Guesses {
		guesses[i] = GuessResultFromRecord(g)
	}

	var turn *int
	if s.CurrentTurn != nil {
		turn = Turn(*s.CurrentTurn)
	}

	return SessionState{
		Key:         s.Key,
		Phase:       s.Phase,
		CurrentTurn: turn,
		WordLength:  s.WordLength,
		MaxAttempts: s.MaxAttempts,
		Players:     players,
		Guesses:     guesses,
		Version:     s.Version,
	}
}
