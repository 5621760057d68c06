package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SealerSuite struct {
	suite.Suite
	sealer *Sealer
}

func TestSealerSuite(t *testing.T) {
	suite.Run(t, new(SealerSuite))
}

func (s *SealerSuite) SetupTest() {
	sealer, err := New([]byte("0123456789abcdef0123456789abcdef"))
	s.Require().NoError(err)
	s.sealer = sealer
}

func (s *SealerSuite) TestRoundTrip() {
	sealed, err := s.sealer.Seal("ABC123", "HELLO")
	s.Require().NoError(err)

	s.NotContains(sealed, "HELLO")

	opened, err := s.sealer.Open("ABC123", sealed)
	s.Require().NoError(err)
	s.Equal("HELLO", opened)
}

func (s *SealerSuite) TestSealingTwiceUsesFreshNonce() {
	first, err := s.sealer.Seal("ABC123", "HELLO")
	s.Require().NoError(err)
	second, err := s.sealer.Seal("ABC123", "HELLO")
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *SealerSuite) TestOpenForOtherSessionFails() {
	sealed, err := s.sealer.Seal("ABC123", "HELLO")
	s.Require().NoError(err)

	_, err = s.sealer.Open("XYZ789", sealed)
	s.ErrorIs(err, ErrOpenFailed)
}

func (s *SealerSuite) TestOpenWithOtherRootKeyFails() {
	sealed, err := s.sealer.Seal("ABC123", "HELLO")
	s.Require().NoError(err)

	other, err := New([]byte(strings.Repeat("z", 32)))
	s.Require().NoError(err)

	_, err = other.Open("ABC123", sealed)
	s.ErrorIs(err, ErrOpenFailed)
}

func (s *SealerSuite) TestOpenMalformed() {
	_, err := s.sealer.Open("ABC123", "not base64!")
	s.ErrorIs(err, ErrMalformed)

	_, err = s.sealer.Open("ABC123", "c2hvcnQ")
	s.ErrorIs(err, ErrMalformed)
}

func (s *SealerSuite) TestRejectsShortRootKey() {
	_, err := New([]byte("short"))
	s.ErrorIs(err, ErrRootKeyTooShort)
}
