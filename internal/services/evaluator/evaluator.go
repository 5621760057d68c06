package evaluator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/mcoot/wordduel/internal/model"
)

// ErrLengthMismatch is returned when the guess and secret differ in length
var ErrLengthMismatch = fmt.Errorf("%w: guess and secret lengths differ", model.ErrInvalidLength)

// Service evaluates guesses against secrets
type Service struct{}

// New creates a new evaluator Service
func New() *Service {
	return &Service{}
}

// Evaluate computes per-position feedback for guess against secret
func (s *Service) Evaluate(guess, secret string) ([]model.LetterState, error) {
	return Evaluate(guess, secret)
}

// Evaluate computes per-position feedback for guess against secret.
//
// Exact matches are marked first. Remaining guess letters are then credited
// Present left to right, only while unmatched occurrences of that letter
// remain in the secret.
func Evaluate(guess, secret string) ([]model.LetterState, error) {
	g := []rune(guess)
	sec := []rune(secret)
	if len(g) != len(sec) {
		return nil, ErrLengthMismatch
	}

	feedback := make([]model.LetterState, len(g))
	remaining := make(map[rune]int, len(sec))

	for i := range g {
		if g[i] == sec[i] {
			feedback[i] = model.LetterCorrect
			continue
		}
		remaining[sec[i]]++
	}

	for i := range g {
		if feedback[i] == model.LetterCorrect {
			continue
		}
		if remaining[g[i]] > 0 {
			feedback[i] = model.LetterPresent
			remaining[g[i]]--
		} else {
			feedback[i] = model.LetterAbsent
		}
	}

	return feedback, nil
}

// Normalize trims surrounding whitespace, composes the word into NFC and
// upper-cases it
func Normalize(word string) string {
	composed := norm.NFC.String(strings.TrimSpace(word))
	return cases.Upper(language.Und).String(composed)
}

// Length returns the number of runes in word
func Length(word string) int {
	return utf8.RuneCountInString(word)
}

// IsWin reports whether feedback is entirely Correct
func IsWin(feedback []model.LetterState) bool {
	return model.AllCorrect(feedback)
}
