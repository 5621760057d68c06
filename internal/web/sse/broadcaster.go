package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/wordduel/internal/api/response"
	"github.com/mcoot/wordduel/internal/model"
)

// Broadcaster publishes session notifications to hub subscribers
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "broadcaster")),
	}
}

// PublishState broadcasts a full state snapshot
func (b *Broadcaster) PublishState(_ context.Context, key model.SessionKey, state model.SessionState) {
	b.publish(key, model.EventState, response.SessionStateFromModel(state))
}

// PublishGuessResult broadcasts the result of one guess
func (b *Broadcaster) PublishGuessResult(_ context.Context, key model.SessionKey, result model.GuessResult) {
	b.publish(key, model.EventGuessResult, response.GuessResultFromModel(result))
}

func (b *Broadcaster) publish(key model.SessionKey, eventType model.EventType, payload any) {
	hub := b.hubManager.GetHub(key)
	if hub == nil {
		return
	}

	event, err := NewEvent(eventType, payload)
	if err != nil {
		b.logger.Error("failed to encode event",
			slog.String("session", string(key)),
			slog.String("event", string(eventType)),
			slog.Any("error", err))
		return
	}
	hub.Broadcast(event)
}

// NewEvent encodes payload as JSON under the given event type
func NewEvent(eventType model.EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: string(eventType), Data: data}, nil
}
