// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Backend test suites embed it and set Storage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// NewSession builds a session with no participants for the given key
func NewSession(key model.SessionKey) *model.Session {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.Session{
		ID:          "id-" + string(key),
		Key:         key,
		WordLength:  5,
		MaxAttempts: 6,
		Phase:       model.PhaseWaitingForPlayers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Suite) create(key model.SessionKey) *model.Session {
	session := NewSession(key)
	s.Require().NoError(s.Storage.CreateSession(s.Ctx, session))
	return session
}

func (s *Suite) TestCreateAndGetSession() {
	session := s.create("ABC234")
	s.Equal(int64(1), session.Version)

	loaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(session.ID, loaded.ID)
	s.Equal(session.Key, loaded.Key)
	s.Equal(5, loaded.WordLength)
	s.Equal(6, loaded.MaxAttempts)
	s.Equal(model.PhaseWaitingForPlayers, loaded.Phase)
	s.Nil(loaded.CurrentTurn)
	s.Empty(loaded.Participants)
	s.Empty(loaded.Guesses)
	s.True(session.CreatedAt.Equal(loaded.CreatedAt))
	s.Equal(int64(1), loaded.Version)
}

func (s *Suite) TestCreateDuplicateKey() {
	s.create("ABC234")

	err := s.Storage.CreateSession(s.Ctx, NewSession("ABC234"))
	s.ErrorIs(err, model.ErrSessionExists)
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.Ctx, "NOPE22")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestSessionExists() {
	exists, err := s.Storage.SessionExists(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.False(exists)

	s.create("ABC234")

	exists, err = s.Storage.SessionExists(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *Suite) TestUpdateRoundTripsFullSession() {
	s.create("ABC234")

	loaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)

	joined := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	loaded.Participants = []model.Participant{
		{ClientID: "alice", DisplayName: "Alice", SealedSecret: "sealed-a", HasSubmittedSecret: true, JoinedAt: joined},
		{ClientID: "bob", DisplayName: "Player2", SealedSecret: "sealed-b", HasSubmittedSecret: true, JoinedAt: joined},
	}
	loaded.Phase = model.PhaseInProgress
	loaded.CurrentTurn = model.Turn(1)
	loaded.Guesses = []model.GuessRecord{
		{
			PlayerIndex: 0,
			Word:        "WORLD",
			Feedback:    []model.LetterState{model.LetterAbsent, model.LetterPresent, model.LetterAbsent, model.LetterCorrect, model.LetterAbsent},
			CreatedAt:   joined,
		},
	}
	loaded.UpdatedAt = joined

	s.Require().NoError(s.Storage.UpdateSession(s.Ctx, loaded, 1))
	s.Equal(int64(2), loaded.Version)

	reloaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(int64(2), reloaded.Version)
	s.Equal(model.PhaseInProgress, reloaded.Phase)
	s.Require().NotNil(reloaded.CurrentTurn)
	s.Equal(1, *reloaded.CurrentTurn)

	s.Require().Len(reloaded.Participants, 2)
	s.Equal(model.ClientID("alice"), reloaded.Participants[0].ClientID)
	s.Equal("Alice", reloaded.Participants[0].DisplayName)
	s.Equal("sealed-a", reloaded.Participants[0].SealedSecret)
	s.True(reloaded.Participants[0].HasSubmittedSecret)
	s.Equal(model.ClientID("bob"), reloaded.Participants[1].ClientID)

	s.Require().Len(reloaded.Guesses, 1)
	s.Equal("WORLD", reloaded.Guesses[0].Word)
	s.Equal(0, reloaded.Guesses[0].PlayerIndex)
	s.Equal(loaded.Guesses[0].Feedback, reloaded.Guesses[0].Feedback)
	s.True(joined.Equal(reloaded.Guesses[0].CreatedAt))
}

func (s *Suite) TestUpdateStaleVersionConflicts() {
	s.create("ABC234")

	first, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	second, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)

	first.Phase = model.PhaseWaitingForSecrets
	s.Require().NoError(s.Storage.UpdateSession(s.Ctx, first, first.Version))

	second.MaxAttempts = 10
	err = s.Storage.UpdateSession(s.Ctx, second, second.Version)
	s.ErrorIs(err, model.ErrVersionConflict)

	reloaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.PhaseWaitingForSecrets, reloaded.Phase)
	s.Equal(6, reloaded.MaxAttempts)
}

func (s *Suite) TestUpdateMissingSession() {
	err := s.Storage.UpdateSession(s.Ctx, NewSession("NOPE22"), 1)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestConcurrentUpdatesOnlyOneWins() {
	s.create("ABC234")

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := NewSession("ABC234")
			session.MaxAttempts = i + 1
			results <- s.Storage.UpdateSession(s.Ctx, session, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrVersionConflict)
	}
	s.Equal(1, succeeded)

	reloaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(int64(2), reloaded.Version)
}

func (s *Suite) TestReturnedSessionIsACopy() {
	s.create("ABC234")

	loaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	loaded.Phase = model.PhaseFinished
	loaded.Participants = append(loaded.Participants, model.Participant{ClientID: "mallory"})

	reloaded, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.PhaseWaitingForPlayers, reloaded.Phase)
	s.Empty(reloaded.Participants)
}

func (s *Suite) TestDeleteSession() {
	s.create("ABC234")

	s.Require().NoError(s.Storage.DeleteSession(s.Ctx, "ABC234"))

	_, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.ErrorIs(err, model.ErrSessionNotFound)

	s.NoError(s.Storage.DeleteSession(s.Ctx, "ABC234"))
}

func (s *Suite) TestReadsSeeOneCommittedVersion() {
	s.create("ABC234")

	// Every write bumps the version and appends exactly one guess, so a
	// consistent read always has Version-1 guesses and a matching turn
	const writes = 150
	done := make(chan error, 1)
	go func() {
		defer close(done)
		for i := range writes {
			session, err := s.Storage.GetSession(s.Ctx, "ABC234")
			if err != nil {
				done <- err
				return
			}
			session.Phase = model.PhaseInProgress
			session.Guesses = append(session.Guesses, model.GuessRecord{
				PlayerIndex: i % 2,
				Word:        "CRANE",
				Feedback:    []model.LetterState{model.LetterAbsent},
				CreatedAt:   session.UpdatedAt,
			})
			session.CurrentTurn = model.Turn(len(session.Guesses) % 2)
			if err := s.Storage.UpdateSession(s.Ctx, session, session.Version); err != nil {
				done <- err
				return
			}
		}
	}()

	torn := 0
	reads := 0
	for writing := true; writing; {
		select {
		case err := <-done:
			s.Require().NoError(err)
			writing = false
		default:
		}

		session, err := s.Storage.GetSession(s.Ctx, "ABC234")
		s.Require().NoError(err)
		reads++
		if int64(len(session.Guesses)) != session.Version-1 {
			torn++
			continue
		}
		if len(session.Guesses) > 0 {
			if session.CurrentTurn == nil || *session.CurrentTurn != len(session.Guesses)%2 {
				torn++
			}
		}
	}

	s.Zero(torn, "%d of %d reads mixed two versions", torn, reads)

	final, err := s.Storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(int64(writes+1), final.Version)
	s.Len(final.Guesses, writes)
}
