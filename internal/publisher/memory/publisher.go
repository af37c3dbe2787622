// Package memory records scan notifications in process for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher keeps every published payload and can be told to fail.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
	failWith error
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a sequential ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, p.failWith)
	}
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// FailWith makes subsequent publishes return err; nil restores success.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Messages returns the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Topic returns the recorded publishes for one topic.
func (p *Publisher) Topic(topic string) []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PublishedMessage
	for _, msg := range p.messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// Close implements the publisher lifecycle; it performs no action.
func (p *Publisher) Close() error {
	return nil
}
