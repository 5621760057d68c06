package session

import (
	"context"

	"github.com/mcoot/wordduel/internal/model"
)

// Notifier pushes committed changes to session subscribers.
// Delivery is best effort; implementations must not block on slow subscribers.
type Notifier interface {
	PublishState(ctx context.Context, key model.SessionKey, state model.SessionState)
	PublishGuessResult(ctx context.Context, key model.SessionKey, result model.GuessResult)
}

// NopNotifier discards all notifications
type NopNotifier struct{}

func (NopNotifier) PublishState(context.Context, model.SessionKey, model.SessionState) {}

func (NopNotifier) PublishGuessResult(context.Context, model.SessionKey, model.GuessResult) {}
