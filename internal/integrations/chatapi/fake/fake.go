package fake

import (
	"context"
	"sync"
)

// RecordingClient captures outbound messages and trigger signals in call
// order. Handler tests assert against it instead of a live platform.
type RecordingClient struct {
	mu sync.Mutex

	Messages []SentMessage
	Signals  []Signal

	SendErr    error
	TriggerErr error
}

type SentMessage struct {
	ContactID string
	Text      string
}

type Signal struct {
	SessionID string
	ContactID string
	Flag      string
}

func New() *RecordingClient { return &RecordingClient{} }

func (c *RecordingClient) SendMessage(ctx context.Context, contactID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Messages = append(c.Messages, SentMessage{ContactID: contactID, Text: text})
	return nil
}

func (c *RecordingClient) TriggerFlag(ctx context.Context, sessionID, contactID, flag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TriggerErr != nil {
		return c.TriggerErr
	}
	c.Signals = append(c.Signals, Signal{SessionID: sessionID, ContactID: contactID, Flag: flag})
	return nil
}
