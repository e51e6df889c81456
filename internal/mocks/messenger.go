package mocks

import (
	"context"
	"sync"
)

// SentMessage is one message captured by MockMessenger.
type SentMessage struct {
	ChatID int64
	Text   string
}

// MockMessenger implements telegram.Messenger and records what was sent.
type MockMessenger struct {
	SendFn func(ctx context.Context, chatID int64, text string) error

	mu   sync.Mutex
	sent []SentMessage
}

// Send implements the Messenger.Send method
func (m *MockMessenger) Send(ctx context.Context, chatID int64, text string) error {
	if m.SendFn != nil {
		if err := m.SendFn(ctx, chatID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

// Sent returns a copy of every successfully sent message.
func (m *MockMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}
