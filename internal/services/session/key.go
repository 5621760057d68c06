package session

import (
	"strings"

	"github.com/mcoot/wordduel/internal/model"
)

// ParseKey normalizes a user-typed session key and checks it could have
// been generated by CreateSession
func ParseKey(raw string) (model.SessionKey, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if len(key) != KeyLength {
		return "", model.ErrInvalidKey
	}
	for _, r := range key {
		if !strings.ContainsRune(KeyAlphabet, r) {
			return "", model.ErrInvalidKey
		}
	}
	return model.SessionKey(key), nil
}
