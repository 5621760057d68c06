package model

import "time"

// SessionKey is the short public code players share to join a session
type SessionKey string

// ClientID is the caller-supplied opaque identifier of a participant
type ClientID string

// Phase represents the current stage of a session
type Phase string

const (
	PhaseWaitingForPlayers Phase = "waiting"     // Fewer than two participants
	PhaseWaitingForSecrets Phase = "secrets"     // Both joined, secrets outstanding
	PhaseInProgress        Phase = "in_progress" // Participants alternate guesses
	PhaseFinished          Phase = "finished"    // Someone guessed the opposing secret
)

// MaxParticipants is the number of players in a session
const MaxParticipants = 2

// phaseOrder gives the position of each phase in the lifecycle
var phaseOrder = map[Phase]int{
	PhaseWaitingForPlayers: 0,
	PhaseWaitingForSecrets: 1,
	PhaseInProgress:        2,
	PhaseFinished:          3,
}

// Before reports whether p comes strictly earlier in the lifecycle than other
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

// IsValid reports whether p is a known phase
func (p Phase) IsValid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// LetterState is the per-position feedback for one guessed letter
type LetterState string

const (
	LetterAbsent  LetterState = "absent"  // Letter not in the secret, or all occurrences used
	LetterPresent LetterState = "present" // Letter elsewhere in the secret
	LetterCorrect LetterState = "correct" // Letter in exactly this position
)

// Participant is one of the two players in a session
type Participant struct {
	ClientID           ClientID
	DisplayName        string
	SealedSecret       string // Opaque sealed form; never leaves the server
	HasSubmittedSecret bool
	JoinedAt           time.Time
}

// GuessRecord is one immutable guess made during a session
type GuessRecord struct {
	PlayerIndex int
	Word        string
	Feedback    []LetterState
	CreatedAt   time.Time
}

// IsWin reports whether every feedback entry is Correct
func (g GuessRecord) IsWin() bool {
	return AllCorrect(g.Feedback)
}

// Session represents a single two-player game
type Session struct {
	ID          string
	Key         SessionKey
	WordLength  int
	MaxAttempts int // Informational only
	Phase       Phase

	// Index of the participant allowed to guess; nil until the game starts
	CurrentTurn *int

	Participants []Participant
	Guesses      []GuessRecord

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the optimistic concurrency stamp assigned by storage
	Version int64
}

// ParticipantIndex returns the index of the participant with the given client
// ID, or -1 if they have not joined
func (s *Session) ParticipantIndex(clientID ClientID) int {
	for i := range s.Participants {
		if s.Participants[i].ClientID == clientID {
			return i
		}
	}
	return -1
}

// IsFull returns true once both participants have joined
func (s *Session) IsFull() bool {
	return len(s.Participants) >= MaxParticipants
}

// AllSecretsSubmitted returns true if every seat is taken and every
// participant has submitted a secret
func (s *Session) AllSecretsSubmitted() bool {
	if !s.IsFull() {
		return false
	}
	for _, p := range s.Participants {
		if !p.HasSubmittedSecret {
			return false
		}
	}
	return true
}

// IsTurn reports whether the participant at index may guess right now
func (s *Session) IsTurn(index int) bool {
	return s.Phase == PhaseInProgress && s.CurrentTurn != nil && *s.CurrentTurn == index
}

// Winner returns the index of the participant who finished the game, or -1
func (s *Session) Winner() int {
	if s.Phase != PhaseFinished {
		return -1
	}
	for i := len(s.Guesses) - 1; i >= 0; i-- {
		if s.Guesses[i].IsWin() {
			return s.Guesses[i].PlayerIndex
		}
	}
	return -1
}

// Clone returns a deep copy that shares no mutable state with s
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.CurrentTurn != nil {
		turn := *s.CurrentTurn
		c.CurrentTurn = &turn
	}
	if s.Participants != nil {
		c.Participants = make([]Participant, len(s.Participants))
		copy(c.Participants, s.Participants)
	}
	if s.Guesses != nil {
		c.Guesses = make([]GuessRecord, len(s.Guesses))
		for i, g := range s.Guesses {
			g.Feedback = append([]LetterState(nil), g.Feedback...)
			c.Guesses[i] = g
		}
	}
	return &c
}

// AllCorrect reports whether feedback is non-empty and entirely Correct
func AllCorrect(feedback []LetterState) bool {
	if len(feedback) == 0 {
		return false
	}
	for _, f := range feedback {
		if f != LetterCorrect {
			return false
		}
	}
	return true
}

// Turn returns a pointer to a copy of index, for assigning CurrentTurn
func Turn(index int) *int {
	return &index
}
