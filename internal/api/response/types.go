package response

import "github.com/mcoot/wordduel/internal/model"

// CreateSessionResponse is the response for creating a session
type CreateSessionResponse struct {
	SessionKey  string `json:"session_key"`
	WordLength  int    `json:"word_length"`
	MaxAttempts int    `json:"max_attempts"`
}

// CreateSessionFromModel converts a freshly created model.Session
func CreateSessionFromModel(s *model.Session) CreateSessionResponse {
	return CreateSessionResponse{
		SessionKey:  string(s.Key),
		WordLength:  s.WordLength,
		MaxAttempts: s.MaxAttempts,
	}
}

// JoinResponse is the response after joining a session
type JoinResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	PlayerIndex int    `json:"player_index"`
}

// SuccessResponse is a generic acknowledgement
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GuessResult is the outcome of one guess
type GuessResult struct {
	Guess          string   `json:"guess"`
	Feedback       []string `json:"feedback"`
	PlayerIndex    int      `json:"player_index"`
	IsWinningGuess bool     `json:"is_winning_guess"`
}

// GuessResultFromModel converts model.GuessResult
func GuessResultFromModel(g model.GuessResult) GuessResult {
	feedback := make([]string, len(g.Feedback))
	for i, f := range g.Feedback {
		feedback[i] = string(f)
	}
	return GuessResult{
		Guess:          g.Guess,
		Feedback:       feedback,
		PlayerIndex:    g.PlayerIndex,
		IsWinningGuess: g.IsWinningGuess,
	}
}

// SessionState is the public snapshot of a session
type SessionState struct {
	SessionKey  string        `json:"session_key"`
	Phase       string        `json:"phase"`
	CurrentTurn *int          `json:"current_turn"`
	WordLength  int           `json:"word_length"`
	MaxAttempts int           `json:"max_attempts"`
	Players     []string      `json:"players"`
	Guesses     []GuessResult `json:"guesses"`
	Version     int64         `json:"version"`
}

// SessionStateFromModel converts model.SessionState
func SessionStateFromModel(s model.SessionState) SessionState {
	guesses := make([]GuessResult, len(s.Guesses))
	for i, g := range s.Guesses {
		guesses[i] = GuessResultFromModel(g)
	}
	players := s.Players
	if players == nil {
		players = []string{}
	}
	return SessionState{
		SessionKey:  string(s.Key),
		Phase:       string(s.Phase),
		CurrentTurn: s.CurrentTurn,
		WordLength:  s.WordLength,
		MaxAttempts: s.MaxAttempts,
		Players:     players,
		Guesses:     guesses,
		Version:     s.Version,
	}
}

// Health is the response for the health check
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}
