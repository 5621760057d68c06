package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/mcoot/wordduel/internal/dependencies/clock"
	"github.com/mcoot/wordduel/internal/dependencies/random"
	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/services/evaluator"
	"github.com/mcoot/wordduel/internal/storage"
)

const (
	// KeyLength is the length of generated session keys
	KeyLength = 6
	// KeyAlphabet is the characters used in session keys (avoid confusing chars)
	KeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxKeyAttempts = 10
)

// Evaluator scores a guess against a secret
type Evaluator interface {
	Evaluate(guess, secret string) ([]model.LetterState, error)
}

// Sealer protects secrets at rest
type Sealer interface {
	Seal(key model.SessionKey, plaintext string) (string, error)
	Open(key model.SessionKey, sealed string) (string, error)
}

// Config holds the rules applied to new sessions and the retry policy
type Config struct {
	WordLength  int
	MaxAttempts int

	// MaxTries bounds how often a mutation is re-run after losing a race
	MaxTries uint
	// RetryInterval is the first backoff delay between tries
	RetryInterval time.Duration
}

// DefaultConfig returns the standard five-letter, six-attempt rules
func DefaultConfig() Config {
	return Config{
		WordLength:    5,
		MaxAttempts:   6,
		MaxTries:      5,
		RetryInterval: 5 * time.Millisecond,
	}
}

// WithDefaults fills every zero field from DefaultConfig
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if c.WordLength <= 0 {
		c.WordLength = defaults.WordLength
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.MaxTries == 0 {
		c.MaxTries = defaults.MaxTries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaults.RetryInterval
	}
	return c
}

// Option configures a Controller
type Option func(*Controller)

// WithEvaluator replaces the evaluator. A nil evaluator disables guessing.
func WithEvaluator(e Evaluator) Option {
	return func(c *Controller) {
		c.evaluator = e
	}
}

// WithNotifier sets where committed changes are published
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// Controller manages the session state machine. Every mutation is a
// load-decide-write cycle against storage guarded by the session version;
// a lost race is retried from a fresh load.
type Controller struct {
	storage   storage.Storage
	sealer    Sealer
	evaluator Evaluator
	notifier  Notifier
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
	cfg       Config
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	sealer Sealer,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Controller {
	c := &Controller{
		storage:   storage,
		sealer:    sealer,
		evaluator: evaluator.New(),
		notifier:  NopNotifier{},
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "session")),
		cfg:       cfg.WithDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	return c
}

// CreateSession creates an empty session waiting for players
func (c *Controller) CreateSession(ctx context.Context) (*model.Session, error) {
	now := c.clock.Now()

	for range maxKeyAttempts {
		key := model.SessionKey(c.random.String(KeyLength, KeyAlphabet))
		exists, err := c.storage.SessionExists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		session := &model.Session{
			ID:           uuid.NewString(),
			Key:          key,
			WordLength:   c.cfg.WordLength,
			MaxAttempts:  c.cfg.MaxAttempts,
			Phase:        model.PhaseWaitingForPlayers,
			Participants: []model.Participant{},
			Guesses:      []model.GuessRecord{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = c.storage.CreateSession(ctx, session)
		if errors.Is(err, model.ErrSessionExists) {
			// Lost the key to a concurrent create
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("session created", slog.String("session", string(key)))
		return session, nil
	}

	return nil, model.ErrKeyGeneration
}

// GetSession loads the raw session, including sealed secrets
func (c *Controller) GetSession(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	return c.storage.GetSession(ctx, key)
}

// GetState returns the public snapshot of a session
func (c *Controller) GetState(ctx context.Context, key model.SessionKey) (*model.SessionState, error) {
	session, err := c.storage.GetSession(ctx, key)
	if err != nil {
		return nil, err
	}
	state := model.StateFromSession(session)
	return &state, nil
}

// JoinSession seats a participant and returns their index.
// An empty displayName defaults to Player1 or Player2.
func (c *Controller) JoinSession(ctx context.Context, key model.SessionKey, clientID model.ClientID, displayName string) (int, error) {
	if clientID == "" {
		return 0, model.ErrInvalidClientID
	}

	var index int
	session, err := c.mutate(ctx, key, func(s *model.Session) error {
		if s.IsFull() {
			return model.ErrSessionFull
		}
		if s.ParticipantIndex(clientID) >= 0 {
			return model.ErrAlreadyJoined
		}

		index = len(s.Participants)
		name := displayName
		if name == "" {
			name = fmt.Sprintf("Player%d", index+1)
		}
		s.Participants = append(s.Participants, model.Participant{
			ClientID:    clientID,
			DisplayName: name,
			JoinedAt:    c.clock.Now(),
		})
		if s.IsFull() {
			s.Phase = model.PhaseWaitingForSecrets
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("player joined",
		slog.String("session", string(key)),
		slog.Int("player_index", index))
	c.publishState(ctx, session)
	return index, nil
}

// SubmitSecret records a participant's secret word. Once both secrets are in
// the game starts with a randomly chosen first player.
func (c *Controller) SubmitSecret(ctx context.Context, key model.SessionKey, clientID model.ClientID, secret string) error {
	secret = evaluator.Normalize(secret)

	session, err := c.mutate(ctx, key, func(s *model.Session) error {
		if s.Phase != model.PhaseWaitingForSecrets {
			return fmt.Errorf("%w: secrets can only be set while waiting for secrets", model.ErrWrongPhase)
		}
		index := s.ParticipantIndex(clientID)
		if index < 0 {
			return model.ErrParticipantNotFound
		}
		if evaluator.Length(secret) != s.WordLength {
			return fmt.Errorf("%w: secret must be %d letters", model.ErrInvalidLength, s.WordLength)
		}
		if s.Participants[index].HasSubmittedSecret {
			return model.ErrSecretAlreadySubmitted
		}

		sealed, err := c.sealer.Seal(s.Key, secret)
		if err != nil {
			return fmt.Errorf("seal secret: %w", err)
		}
		s.Participants[index].SealedSecret = sealed
		s.Participants[index].HasSubmittedSecret = true

		if s.AllSecretsSubmitted() {
			s.Phase = model.PhaseInProgress
			s.CurrentTurn = model.Turn(c.random.Intn(model.MaxParticipants))
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("secret submitted",
		slog.String("session", string(key)),
		slog.String("phase", string(session.Phase)))
	c.publishState(ctx, session)
	return nil
}

// SubmitGuess scores a guess against the opponent's secret. A winning guess
// finishes the game; otherwise the turn passes to the opponent.
func (c *Controller) SubmitGuess(ctx context.Context, key model.SessionKey, clientID model.ClientID, guess string) (*model.GuessResult, error) {
	guess = evaluator.Normalize(guess)

	var result model.GuessResult
	session, err := c.mutate(ctx, key, func(s *model.Session) error {
		if s.Phase != model.PhaseInProgress {
			if s.Phase == model.PhaseFinished {
				return model.ErrGameFinished
			}
			return fmt.Errorf("%w: guesses can only be made while in progress", model.ErrWrongPhase)
		}
		index := s.ParticipantIndex(clientID)
		if index < 0 {
			return model.ErrParticipantNotFound
		}
		if !s.IsTurn(index) {
			return model.ErrNotYourTurn
		}
		if evaluator.Length(guess) != s.WordLength {
			return fmt.Errorf("%w: guess must be %d letters", model.ErrInvalidLength, s.WordLength)
		}
		opponent := s.Participants[1-index]
		if !opponent.HasSubmittedSecret {
			return model.ErrOpponentSecretMissing
		}
		if c.evaluator == nil {
			return model.ErrEvaluationUnavailable
		}

		secret, err := c.sealer.Open(s.Key, opponent.SealedSecret)
		if err != nil {
			return fmt.Errorf("open opponent secret: %w", err)
		}
		feedback, err := c.evaluator.Evaluate(guess, secret)
		if err != nil {
			return err
		}

		record := model.GuessRecord{
			PlayerIndex: index,
			Word:        guess,
			Feedback:    feedback,
			CreatedAt:   c.clock.Now(),
		}
		s.Guesses = append(s.Guesses, record)

		if record.IsWin() {
			s.Phase = model.PhaseFinished
		} else {
			s.CurrentTurn = model.Turn(1 - index)
		}
		result = model.GuessResultFromRecord(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("guess submitted",
		slog.String("session", string(key)),
		slog.Int("player_index", result.PlayerIndex),
		slog.Bool("winning", result.IsWinningGuess))
	c.notifier.PublishGuessResult(ctx, key, result)
	c.publishState(ctx, session)
	return &result, nil
}

// mutate loads the session, applies decide to it and writes it back only if
// nobody else wrote in between. Rule violations from decide are returned as
// is, without retrying and without writing.
func (c *Controller) mutate(ctx context.Context, key model.SessionKey, decide func(s *model.Session) error) (*model.Session, error) {
	attempt := 0
	op := func() (*model.Session, error) {
		attempt++
		session, err := c.storage.GetSession(ctx, key)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		expected := session.Version
		if err := decide(session); err != nil {
			return nil, backoff.Permanent(err)
		}
		session.UpdatedAt = c.clock.Now()

		err = c.storage.UpdateSession(ctx, session, expected)
		if errors.Is(err, model.ErrVersionConflict) {
			c.logger.Debug("session update conflicted, retrying",
				slog.String("session", string(key)),
				slog.Int("attempt", attempt))
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return session, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxInterval = 20 * c.cfg.RetryInterval

	session, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.cfg.MaxTries),
	)
	if err != nil {
		return nil, unwrapPermanent(err)
	}
	return session, nil
}

func (c *Controller) publishState(ctx context.Context, session *model.Session) {
	c.notifier.PublishState(ctx, session.Key, model.StateFromSession(session))
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}
