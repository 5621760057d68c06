package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordduel/internal/dependencies/mocks"
	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/services/secrets"
	"github.com/mcoot/wordduel/internal/storage"
	"github.com/mcoot/wordduel/internal/storage/memory"
	"github.com/mcoot/wordduel/internal/testutil"
)

// interferingStorage runs a hook before the first n conditional updates,
// standing in for a competing request that commits in between
type interferingStorage struct {
	storage.Storage
	mu          sync.Mutex
	remaining   int
	hook        func()
	updateCalls int
}

func (s *interferingStorage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	s.mu.Lock()
	s.updateCalls++
	fire := s.remaining > 0 && s.hook != nil
	if fire {
		s.remaining--
	}
	s.mu.Unlock()

	if fire {
		s.hook()
	}
	return s.Storage.UpdateSession(ctx, session, expectedVersion)
}

func (s *interferingStorage) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCalls
}

// alwaysConflictingStorage rejects every conditional update
type alwaysConflictingStorage struct {
	storage.Storage
	mu    sync.Mutex
	calls int
}

func (s *alwaysConflictingStorage) UpdateSession(context.Context, *model.Session, int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return model.ErrVersionConflict
}

// brokenSealer seals normally but can never open
type brokenSealer struct {
	Sealer
}

func (brokenSealer) Open(model.SessionKey, string) (string, error) {
	return "", secrets.ErrOpenFailed
}

type ControllerSuite struct {
	suite.Suite
	storage    *interferingStorage
	sealer     *secrets.Sealer
	clock      *quartz.Mock
	random     *mocks.MockRandom
	notifier   *mocks.RecordingNotifier
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = time.Millisecond
	return cfg
}

func (s *ControllerSuite) SetupTest() {
	s.storage = &interferingStorage{Storage: memory.New()}
	sealer, err := secrets.New([]byte(strings.Repeat("k", 32)))
	s.Require().NoError(err)
	s.sealer = sealer
	s.clock = quartz.NewMock(s.T())
	s.random = mocks.NewMockRandom()
	s.notifier = mocks.NewRecordingNotifier()
	s.controller = s.newController()
	s.ctx = context.Background()
}

func (s *ControllerSuite) newController(opts ...Option) *Controller {
	opts = append([]Option{WithNotifier(s.notifier)}, opts...)
	return NewController(s.storage, s.sealer, s.clock, s.random, testutil.NopLogger(), testConfig(), opts...)
}

func (s *ControllerSuite) createSession(key string) model.SessionKey {
	s.random.QueueString(key)
	session, err := s.controller.CreateSession(s.ctx)
	s.Require().NoError(err)
	return session.Key
}

func (s *ControllerSuite) fullSession(key string) model.SessionKey {
	k := s.createSession(key)
	_, err := s.controller.JoinSession(s.ctx, k, "alice", "Alice")
	s.Require().NoError(err)
	_, err = s.controller.JoinSession(s.ctx, k, "bob", "Bob")
	s.Require().NoError(err)
	return k
}

// startedSession returns a session in progress with the given player to move.
// Alice's secret is HELLO, Bob's is WORLD.
func (s *ControllerSuite) startedSession(key string, firstTurn int) model.SessionKey {
	k := s.fullSession(key)
	s.random.QueueIntn(firstTurn)
	s.Require().NoError(s.controller.SubmitSecret(s.ctx, k, "alice", "HELLO"))
	s.Require().NoError(s.controller.SubmitSecret(s.ctx, k, "bob", "WORLD"))
	return k
}

func (s *ControllerSuite) load(key model.SessionKey) *model.Session {
	session, err := s.storage.GetSession(s.ctx, key)
	s.Require().NoError(err)
	return session
}

// CreateSession tests

func (s *ControllerSuite) TestCreateSession() {
	s.random.QueueString("ABC234")

	session, err := s.controller.CreateSession(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.SessionKey("ABC234"), session.Key)
	s.NotEmpty(session.ID)
	s.Equal(5, session.WordLength)
	s.Equal(6, session.MaxAttempts)
	s.Equal(model.PhaseWaitingForPlayers, session.Phase)
	s.Nil(session.CurrentTurn)
	s.Empty(session.Participants)
	s.Equal(s.clock.Now(), session.CreatedAt)

	stored := s.load("ABC234")
	s.Equal(int64(1), stored.Version)
}

func (s *ControllerSuite) TestCreateSessionRegeneratesKeyOnCollision() {
	s.createSession("ABC234")
	s.random.QueueString("ABC234", "XYZ789")

	session, err := s.controller.CreateSession(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.SessionKey("XYZ789"), session.Key)
}

func (s *ControllerSuite) TestCreateSessionGivesUpAfterRepeatedCollisions() {
	s.createSession("ABC234")
	for range maxKeyAttempts {
		s.random.QueueString("ABC234")
	}

	_, err := s.controller.CreateSession(s.ctx)

	s.ErrorIs(err, model.ErrKeyGeneration)
	s.Equal(model.KindUnavailable, model.KindOf(err))
}

func (s *ControllerSuite) TestCreateSessionUsesConfiguredRules() {
	cfg := testConfig()
	cfg.WordLength = 7
	cfg.MaxAttempts = 10
	controller := NewController(s.storage, s.sealer, s.clock, s.random, testutil.NopLogger(), cfg)
	s.random.QueueString("ABC234")

	session, err := controller.CreateSession(s.ctx)
	s.Require().NoError(err)

	s.Equal(7, session.WordLength)
	s.Equal(10, session.MaxAttempts)
}

// JoinSession tests

func (s *ControllerSuite) TestJoinAssignsIndexesAndDefaultNames() {
	key := s.createSession("ABC234")

	first, err := s.controller.JoinSession(s.ctx, key, "alice", "")
	s.Require().NoError(err)
	s.Equal(0, first)
	s.Equal(model.PhaseWaitingForPlayers, s.load(key).Phase)

	second, err := s.controller.JoinSession(s.ctx, key, "bob", "")
	s.Require().NoError(err)
	s.Equal(1, second)

	session := s.load(key)
	s.Equal(model.PhaseWaitingForSecrets, session.Phase)
	s.Equal("Player1", session.Participants[0].DisplayName)
	s.Equal("Player2", session.Participants[1].DisplayName)
	s.Nil(session.CurrentTurn)
}

func (s *ControllerSuite) TestJoinKeepsSuppliedDisplayName() {
	key := s.createSession("ABC234")

	_, err := s.controller.JoinSession(s.ctx, key, "alice", "Alice")
	s.Require().NoError(err)

	s.Equal("Alice", s.load(key).Participants[0].DisplayName)
}

func (s *ControllerSuite) TestJoinUnknownSession() {
	_, err := s.controller.JoinSession(s.ctx, "NOPE22", "alice", "")

	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal(model.KindNotFound, model.KindOf(err))
}

func (s *ControllerSuite) TestThirdJoinConflictsAndChangesNothing() {
	key := s.fullSession("ABC234")
	before := s.load(key)

	_, err := s.controller.JoinSession(s.ctx, key, "carol", "")

	s.ErrorIs(err, model.ErrSessionFull)
	s.Equal(model.KindConflict, model.KindOf(err))
	after := s.load(key)
	s.Len(after.Participants, 2)
	s.Equal(before.Version, after.Version)
}

func (s *ControllerSuite) TestJoinTwiceWithSameClientConflicts() {
	key := s.createSession("ABC234")
	_, err := s.controller.JoinSession(s.ctx, key, "alice", "")
	s.Require().NoError(err)

	_, err = s.controller.JoinSession(s.ctx, key, "alice", "")

	s.ErrorIs(err, model.ErrAlreadyJoined)
	s.Len(s.load(key).Participants, 1)
}

func (s *ControllerSuite) TestJoinRequiresClientID() {
	key := s.createSession("ABC234")

	_, err := s.controller.JoinSession(s.ctx, key, "", "")

	s.ErrorIs(err, model.ErrInvalidClientID)
	s.Equal(model.KindInvalidInput, model.KindOf(err))
}

func (s *ControllerSuite) TestJoinPublishesState() {
	key := s.createSession("ABC234")

	_, err := s.controller.JoinSession(s.ctx, key, "alice", "Alice")
	s.Require().NoError(err)

	notifications := s.notifier.Notifications()
	s.Require().Len(notifications, 1)
	s.Equal(model.EventState, notifications[0].Type)
	s.Equal(key, notifications[0].Key)
	s.Equal([]string{"Alice"}, notifications[0].State.Players)
}

func (s *ControllerSuite) TestPublishedStatesCarryCommittedVersion() {
	key := s.createSession("ABC234")

	_, err := s.controller.JoinSession(s.ctx, key, "alice", "")
	s.Require().NoError(err)
	_, err = s.controller.JoinSession(s.ctx, key, "bob", "")
	s.Require().NoError(err)

	notifications := s.notifier.Notifications()
	s.Require().Len(notifications, 2)
	s.Equal(int64(2), notifications[0].State.Version)
	s.Equal(int64(3), notifications[1].State.Version)
	s.Equal(s.load(key).Version, notifications[1].State.Version)

	state, err := s.controller.GetState(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(int64(3), state.Version)
}

// SubmitSecret tests

func (s *ControllerSuite) TestSubmitSecretBeforeBothJoined() {
	key := s.createSession("ABC234")
	_, err := s.controller.JoinSession(s.ctx, key, "alice", "")
	s.Require().NoError(err)

	err = s.controller.SubmitSecret(s.ctx, key, "alice", "HELLO")

	s.ErrorIs(err, model.ErrWrongPhase)
	s.Equal(model.KindInvalidState, model.KindOf(err))
}

func (s *ControllerSuite) TestSubmitSecretUnknownParticipant() {
	key := s.fullSession("ABC234")

	err := s.controller.SubmitSecret(s.ctx, key, "mallory", "HELLO")

	s.ErrorIs(err, model.ErrParticipantNotFound)
	s.Equal(model.KindNotFound, model.KindOf(err))
}

func (s *ControllerSuite) TestSubmitSecretWrongLength() {
	key := s.fullSession("ABC234")

	err := s.controller.SubmitSecret(s.ctx, key, "alice", "HI")

	s.ErrorIs(err, model.ErrInvalidLength)
	s.Equal(model.KindInvalidInput, model.KindOf(err))
	s.False(s.load(key).Participants[0].HasSubmittedSecret)
}

func (s *ControllerSuite) TestSubmitSecretIsWriteOnce() {
	key := s.fullSession("ABC234")
	s.Require().NoError(s.controller.SubmitSecret(s.ctx, key, "alice", "HELLO"))
	sealed := s.load(key).Participants[0].SealedSecret

	err := s.controller.SubmitSecret(s.ctx, key, "alice", "PIANO")

	s.ErrorIs(err, model.ErrSecretAlreadySubmitted)
	s.Equal(sealed, s.load(key).Participants[0].SealedSecret)
}

func (s *ControllerSuite) TestSubmitSecretIsSealedAtRest() {
	key := s.fullSession("ABC234")

	s.Require().NoError(s.controller.SubmitSecret(s.ctx, key, "alice", "hello"))

	participant := s.load(key).Participants[0]
	s.True(participant.HasSubmittedSecret)
	s.NotContains(participant.SealedSecret, "HELLO")

	opened, err := s.sealer.Open(key, participant.SealedSecret)
	s.Require().NoError(err)
	s.Equal("HELLO", opened)
}

func (s *ControllerSuite) TestBothSecretsStartGameWithRandomTurn() {
	key := s.fullSession("ABC234")
	s.random.QueueIntn(1)

	s.Require().NoError(s.controller.SubmitSecret(s.ctx, key, "alice", "HELLO"))
	s.Equal(model.PhaseWaitingForSecrets, s.load(key).Phase)

	s.Require().NoError(s.controller.SubmitSecret(s.ctx, key, "bob", "WORLD"))

	session := s.load(key)
	s.Equal(model.PhaseInProgress, session.Phase)
	s.Require().NotNil(session.CurrentTurn)
	s.Equal(1, *session.CurrentTurn)
}

func (s *ControllerSuite) TestSubmitSecretAfterGameStarted() {
	key := s.startedSession("ABC234", 0)

	err := s.controller.SubmitSecret(s.ctx, key, "alice", "PIANO")

	s.ErrorIs(err, model.ErrWrongPhase)
}

// SubmitGuess tests

func (s *ControllerSuite) TestGuessBeforeGameStarted() {
	key := s.fullSession("ABC234")

	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORLD")

	s.ErrorIs(err, model.ErrWrongPhase)
	s.Equal(model.KindInvalidState, model.KindOf(err))
}

func (s *ControllerSuite) TestGuessUnknownParticipant() {
	key := s.startedSession("ABC234", 0)

	_, err := s.controller.SubmitGuess(s.ctx, key, "mallory", "WORLD")

	s.ErrorIs(err, model.ErrParticipantNotFound)
}

func (s *ControllerSuite) TestOutOfTurnGuessIsRejectedWithoutChanges() {
	key := s.startedSession("ABC234", 0)
	before := s.load(key)

	_, err := s.controller.SubmitGuess(s.ctx, key, "bob", "HELLO")

	s.ErrorIs(err, model.ErrNotYourTurn)
	s.Equal(model.KindInvalidState, model.KindOf(err))
	after := s.load(key)
	s.Equal(0, *after.CurrentTurn)
	s.Empty(after.Guesses)
	s.Equal(before.Version, after.Version)
}

func (s *ControllerSuite) TestGuessWrongLength() {
	key := s.startedSession("ABC234", 0)

	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORLDS")

	s.ErrorIs(err, model.ErrInvalidLength)
	s.Empty(s.load(key).Guesses)
}

func (s *ControllerSuite) TestNonWinningGuessPassesTurn() {
	key := s.startedSession("ABC234", 0)

	result, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
	s.Require().NoError(err)

	// Alice guesses against Bob's secret WORLD
	s.Equal("WORDS", result.Guess)
	s.Equal(0, result.PlayerIndex)
	s.False(result.IsWinningGuess)
	s.Equal([]model.LetterState{
		model.LetterCorrect, model.LetterCorrect, model.LetterCorrect, model.LetterPresent, model.LetterAbsent,
	}, result.Feedback)

	session := s.load(key)
	s.Equal(model.PhaseInProgress, session.Phase)
	s.Equal(1, *session.CurrentTurn)
	s.Len(session.Guesses, 1)

	_, err = s.controller.SubmitGuess(s.ctx, key, "bob", "HOTEL")
	s.Require().NoError(err)
	s.Equal(0, *s.load(key).CurrentTurn)
}

func (s *ControllerSuite) TestGuessIsNormalized() {
	key := s.startedSession("ABC234", 1)

	result, err := s.controller.SubmitGuess(s.ctx, key, "bob", " hello ")
	s.Require().NoError(err)

	s.Equal("HELLO", result.Guess)
	s.True(result.IsWinningGuess)
}

func (s *ControllerSuite) TestWinningGuessFinishesGame() {
	key := s.startedSession("ABC234", 1)

	result, err := s.controller.SubmitGuess(s.ctx, key, "bob", "HELLO")
	s.Require().NoError(err)
	s.True(result.IsWinningGuess)

	session := s.load(key)
	s.Equal(model.PhaseFinished, session.Phase)
	s.Require().NotNil(session.CurrentTurn)
	s.Equal(1, *session.CurrentTurn)
	s.Equal(1, session.Winner())

	for _, client := range []model.ClientID{"alice", "bob"} {
		_, err = s.controller.SubmitGuess(s.ctx, key, client, "HELLO")
		s.ErrorIs(err, model.ErrGameFinished)
		s.Equal(model.KindInvalidState, model.KindOf(err))
	}
	s.Len(s.load(key).Guesses, 1)
}

func (s *ControllerSuite) TestGuessPublishesResultThenState() {
	key := s.startedSession("ABC234", 0)
	s.notifier.Reset()

	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
	s.Require().NoError(err)

	s.Equal([]model.EventType{model.EventGuessResult, model.EventState}, s.notifier.Types())
	notifications := s.notifier.Notifications()
	s.Equal("WORDS", notifications[0].GuessResult.Guess)
	s.Len(notifications[1].State.Guesses, 1)
}

func (s *ControllerSuite) TestRejectedGuessPublishesNothing() {
	key := s.startedSession("ABC234", 0)
	s.notifier.Reset()

	_, err := s.controller.SubmitGuess(s.ctx, key, "bob", "WORDS")
	s.Require().Error(err)

	s.Empty(s.notifier.Notifications())
}

func (s *ControllerSuite) TestGuessWithoutEvaluatorIsUnimplemented() {
	s.controller = s.newController(WithEvaluator(nil))
	key := s.startedSession("ABC234", 0)

	// Rule checks still come first
	_, err := s.controller.SubmitGuess(s.ctx, key, "bob", "HELLO")
	s.ErrorIs(err, model.ErrNotYourTurn)

	_, err = s.controller.SubmitGuess(s.ctx, key, "alice", "WORLD")
	s.ErrorIs(err, model.ErrEvaluationUnavailable)
	s.Equal(model.KindUnimplemented, model.KindOf(err))
	s.Empty(s.load(key).Guesses)
}

func (s *ControllerSuite) TestGuessWhenSecretCannotBeOpened() {
	s.controller = NewController(s.storage, brokenSealer{Sealer: s.sealer}, s.clock, s.random, testutil.NopLogger(), testConfig())
	key := s.startedSession("ABC234", 0)

	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORLD")

	s.ErrorIs(err, secrets.ErrOpenFailed)
	s.Equal(model.KindInternal, model.KindOf(err))
	s.Empty(s.load(key).Guesses)
}

// GetState tests

func (s *ControllerSuite) TestGetStateSnapshot() {
	key := s.startedSession("ABC234", 0)
	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
	s.Require().NoError(err)

	state, err := s.controller.GetState(s.ctx, key)
	s.Require().NoError(err)

	s.Equal(key, state.Key)
	s.Equal(model.PhaseInProgress, state.Phase)
	s.Equal(1, *state.CurrentTurn)
	s.Equal(5, state.WordLength)
	s.Equal(6, state.MaxAttempts)
	s.Equal([]string{"Alice", "Bob"}, state.Players)
	s.Require().Len(state.Guesses, 1)
	s.Equal("WORDS", state.Guesses[0].Guess)
	s.False(state.Guesses[0].IsWinningGuess)
}

func (s *ControllerSuite) TestGetStateNotFound() {
	_, err := s.controller.GetState(s.ctx, "NOPE22")

	s.ErrorIs(err, model.ErrSessionNotFound)
}

// Lifecycle tests

func (s *ControllerSuite) TestPhaseNeverRegresses() {
	var phases []model.Phase
	record := func(key model.SessionKey) {
		state, err := s.controller.GetState(s.ctx, key)
		s.Require().NoError(err)
		phases = append(phases, state.Phase)
	}

	key := s.createSession("ABC234")
	record(key)
	_, _ = s.controller.JoinSession(s.ctx, key, "alice", "")
	record(key)
	_, _ = s.controller.JoinSession(s.ctx, key, "bob", "")
	record(key)
	_, _ = s.controller.JoinSession(s.ctx, key, "carol", "")
	record(key)
	s.random.QueueIntn(0)
	_ = s.controller.SubmitSecret(s.ctx, key, "alice", "HELLO")
	record(key)
	_ = s.controller.SubmitSecret(s.ctx, key, "bob", "WORLD")
	record(key)
	_, _ = s.controller.SubmitGuess(s.ctx, key, "bob", "HELLO")
	record(key)
	_, _ = s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
	record(key)
	_, _ = s.controller.SubmitGuess(s.ctx, key, "bob", "HELLO")
	record(key)
	_, _ = s.controller.SubmitGuess(s.ctx, key, "alice", "WORLD")
	record(key)

	for i := 1; i < len(phases); i++ {
		s.False(phases[i].Before(phases[i-1]), "phase regressed from %s to %s", phases[i-1], phases[i])
	}
	s.Contains(phases, model.PhaseWaitingForPlayers)
	s.Contains(phases, model.PhaseWaitingForSecrets)
	s.Contains(phases, model.PhaseInProgress)
	s.Equal(model.PhaseFinished, phases[len(phases)-1])
}

func (s *ControllerSuite) TestEndToEnd() {
	session, err := func() (*model.Session, error) {
		s.random.QueueString("GAME22")
		return s.controller.CreateSession(s.ctx)
	}()
	s.Require().NoError(err)
	s.Equal(5, session.WordLength)

	a, err := s.controller.JoinSession(s.ctx, session.Key, "player-a", "")
	s.Require().NoError(err)
	b, err := s.controller.JoinSession(s.ctx, session.Key, "player-b", "")
	s.Require().NoError(err)
	s.Equal(0, a)
	s.Equal(1, b)

	state, err := s.controller.GetState(s.ctx, session.Key)
	s.Require().NoError(err)
	s.Equal(model.PhaseWaitingForSecrets, state.Phase)

	s.Require().NoError(s.controller.SubmitSecret(s.ctx, session.Key, "player-a", "HELLO"))
	s.Require().NoError(s.controller.SubmitSecret(s.ctx, session.Key, "player-b", "WORLD"))

	state, err = s.controller.GetState(s.ctx, session.Key)
	s.Require().NoError(err)
	s.Equal(model.PhaseInProgress, state.Phase)
	s.Require().NotNil(state.CurrentTurn)
	s.Contains([]int{0, 1}, *state.CurrentTurn)

	guesser, answer := model.ClientID("player-a"), "WORLD"
	if *state.CurrentTurn == 1 {
		guesser, answer = "player-b", "HELLO"
	}

	result, err := s.controller.SubmitGuess(s.ctx, session.Key, guesser, answer)
	s.Require().NoError(err)
	s.True(result.IsWinningGuess)
	s.Equal([]model.LetterState{
		model.LetterCorrect, model.LetterCorrect, model.LetterCorrect, model.LetterCorrect, model.LetterCorrect,
	}, result.Feedback)

	state, err = s.controller.GetState(s.ctx, session.Key)
	s.Require().NoError(err)
	s.Equal(model.PhaseFinished, state.Phase)
}

// Concurrency tests

func (s *ControllerSuite) TestConflictRetriesAgainstFreshState() {
	key := s.startedSession("ABC234", 0)
	s.storage.remaining = 1
	s.storage.hook = func() {
		// A competing request commits Alice's guess first
		session, err := s.storage.Storage.GetSession(s.ctx, key)
		s.Require().NoError(err)
		session.Guesses = append(session.Guesses, model.GuessRecord{
			PlayerIndex: 0,
			Word:        "QUICK",
			Feedback:    []model.LetterState{model.LetterAbsent, model.LetterAbsent, model.LetterAbsent, model.LetterAbsent, model.LetterAbsent},
		})
		session.CurrentTurn = model.Turn(1)
		s.Require().NoError(s.storage.Storage.UpdateSession(s.ctx, session, session.Version))
	}
	callsBefore := s.storage.calls()

	_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")

	// The retry re-checks the turn and finds it has passed to Bob
	s.ErrorIs(err, model.ErrNotYourTurn)
	session := s.load(key)
	s.Require().Len(session.Guesses, 1)
	s.Equal("QUICK", session.Guesses[0].Word)
	s.Equal(1, *session.CurrentTurn)
	s.Equal(1, s.storage.calls()-callsBefore)
}

func (s *ControllerSuite) TestConflictWithUnrelatedWriteStillCommits() {
	key := s.startedSession("ABC234", 0)
	s.storage.remaining = 1
	s.storage.hook = func() {
		session, err := s.storage.Storage.GetSession(s.ctx, key)
		s.Require().NoError(err)
		s.Require().NoError(s.storage.Storage.UpdateSession(s.ctx, session, session.Version))
	}

	result, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
	s.Require().NoError(err)

	s.Equal("WORDS", result.Guess)
	session := s.load(key)
	s.Len(session.Guesses, 1)
	s.Equal(1, *session.CurrentTurn)
}

func (s *ControllerSuite) TestExhaustedRetriesSurfaceConflict() {
	key := s.startedSession("ABC234", 0)
	conflicting := &alwaysConflictingStorage{Storage: s.storage}
	controller := NewController(conflicting, s.sealer, s.clock, s.random, testutil.NopLogger(), testConfig(), WithNotifier(s.notifier))
	s.notifier.Reset()

	_, err := controller.SubmitGuess(s.ctx, key, "alice", "WORDS")

	s.ErrorIs(err, model.ErrVersionConflict)
	s.Equal(model.KindConflict, model.KindOf(err))
	s.Equal(int(testConfig().MaxTries), conflicting.calls)
	s.Empty(s.load(key).Guesses)
	s.Empty(s.notifier.Notifications())
}

func (s *ControllerSuite) TestPartialConfigStillBoundsRetries() {
	key := s.startedSession("ABC234", 0)
	conflicting := &alwaysConflictingStorage{Storage: s.storage}
	controller := NewController(conflicting, s.sealer, s.clock, s.random, testutil.NopLogger(), Config{WordLength: 5}, WithNotifier(s.notifier))

	_, err := controller.SubmitGuess(s.ctx, key, "alice", "WORDS")

	s.ErrorIs(err, model.ErrVersionConflict)
	s.Equal(int(DefaultConfig().MaxTries), conflicting.calls)
}

func (s *ControllerSuite) TestConcurrentGuessesCommitExactlyOnce() {
	key := s.startedSession("ABC234", 0)

	const racers = 4
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.controller.SubmitGuess(s.ctx, key, "alice", "WORDS")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, model.ErrNotYourTurn) && !errors.Is(err, model.ErrVersionConflict) {
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)

	session := s.load(key)
	s.Len(session.Guesses, 1)
	s.Equal(1, *session.CurrentTurn)
}

func (s *ControllerSuite) TestConcurrentJoinsNeverOverfill() {
	key := s.createSession("ABC234")

	clients := []model.ClientID{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.controller.JoinSession(s.ctx, key, client, "")
		}()
	}
	wg.Wait()

	session := s.load(key)
	s.Len(session.Participants, 2)
	s.NotEqual(session.Participants[0].ClientID, session.Participants[1].ClientID)
	s.Equal(model.PhaseWaitingForSecrets, session.Phase)
}
