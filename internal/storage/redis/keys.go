package redis

import (
	"fmt"

	"github.com/mcoot/wordduel/internal/model"
)

// Key prefix for all session data
const keyPrefix = "wordduel"

// sessionKey returns the Redis key for a Session
func sessionKey(key model.SessionKey) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, key)
}
