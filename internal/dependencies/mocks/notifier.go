package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/wordduel/internal/model"
)

// Notification is one message captured by RecordingNotifier
type Notification struct {
	Key         model.SessionKey
	Type        model.EventType
	State       model.SessionState
	GuessResult model.GuessResult
}

// RecordingNotifier captures published notifications in order
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewRecordingNotifier creates an empty RecordingNotifier
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) PublishState(_ context.Context, key model.SessionKey, state model.SessionState) {
	n.record(Notification{Key: key, Type: model.EventState, State: state})
}

func (n *RecordingNotifier) PublishGuessResult(_ context.Context, key model.SessionKey, result model.GuessResult) {
	n.record(Notification{Key: key, Type: model.EventGuessResult, GuessResult: result})
}

func (n *RecordingNotifier) record(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

// Notifications returns a copy of everything recorded so far
func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notifications...)
}

// Types returns the event types recorded so far, in order
func (n *RecordingNotifier) Types() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]model.EventType, len(n.notifications))
	for i, notification := range n.notifications {
		types[i] = notification.Type
	}
	return types
}

// Reset discards recorded notifications
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = nil
}
