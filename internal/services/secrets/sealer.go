package secrets

import (
	"crypto/hkdf"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/mcoot/wordduel/internal/model"
)

const (
	nonceSize = 24
	keySize   = 32

	// MinRootKeyLength is the shortest root key accepted by New
	MinRootKeyLength = 16
)

var (
	ErrRootKeyTooShort = errors.New("sealing root key is too short")
	ErrMalformed       = errors.New("sealed secret is malformed")
	ErrOpenFailed      = errors.New("sealed secret could not be opened")
)

// Sealer encrypts secret words at rest. Each session gets its own key
// derived from the root key, so a sealed value only opens for the session
// it was sealed for.
type Sealer struct {
	rootKey []byte
}

// New creates a Sealer from root key material
func New(rootKey []byte) (*Sealer, error) {
	if len(rootKey) < MinRootKeyLength {
		return nil, ErrRootKeyTooShort
	}
	return &Sealer{rootKey: append([]byte(nil), rootKey...)}, nil
}

// Seal encrypts plaintext for the given session
func (s *Sealer) Seal(key model.SessionKey, plaintext string) (string, error) {
	sessionKey, err := s.deriveKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, sessionKey)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same session
func (s *Sealer) Open(key model.SessionKey, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}

	sessionKey, err := s.deriveKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, sessionKey)
	if !ok {
		return "", ErrOpenFailed
	}
	return string(plaintext), nil
}

func (s *Sealer) deriveKey(key model.SessionKey) (*[keySize]byte, error) {
	derived, err := hkdf.Key(sha256.New, s.rootKey, nil, "session:"+string(key), keySize)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	var out [keySize]byte
	copy(out[:], derived)
	return &out, nil
}
