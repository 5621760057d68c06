package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.SessionTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSessionStoredUnderPrefixedKey() {
	s.Require().NoError(s.storage.CreateSession(s.Ctx, storagetest.NewSession("ABC234")))

	s.True(s.mini.Exists("wordduel:session:ABC234"))
}

func (s *StorageSuite) TestSessionTTL() {
	s.Require().NoError(s.storage.CreateSession(s.Ctx, storagetest.NewSession("ABC234")))

	ttl := s.mini.TTL("wordduel:session:ABC234")
	s.Equal(time.Hour, ttl)

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetSession(s.Ctx, "ABC234")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestUpdateRefreshesTTL() {
	s.Require().NoError(s.storage.CreateSession(s.Ctx, storagetest.NewSession("ABC234")))
	s.mini.FastForward(30 * time.Minute)

	session, err := s.storage.GetSession(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.UpdateSession(s.Ctx, session, session.Version))

	s.Equal(time.Hour, s.mini.TTL("wordduel:session:ABC234"))
}

func (s *StorageSuite) TestCorruptDocument() {
	s.Require().NoError(s.mini.Set("wordduel:session:ABC234", "{not json"))

	_, err := s.storage.GetSession(s.Ctx, "ABC234")
	s.Error(err)
	s.NotErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestUnknownPhaseIsRejected() {
	s.Require().NoError(s.mini.Set("wordduel:session:ABC234", `{"Key":"ABC234","Phase":"paused","Version":1}`))

	_, err := s.storage.GetSession(s.Ctx, "ABC234")
	s.ErrorContains(err, "unknown phase")
}
