// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/cinerec/internal/metrics"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("events: bus is closed")

	// ErrNoSubscribers is returned by Publish when nothing is subscribed
	// to the topic. GoChannel would otherwise drop the message silently.
	ErrNoSubscribers = errors.New("events: no subscribers")
)

// BusConfig configures the in-process pub/sub.
type BusConfig struct {
	// Buffer is the per-subscriber output channel size.
	Buffer int64
}

// DefaultBusConfig returns production defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{Buffer: 16}
}

// Bus is a GoChannel pub/sub. Publishing with no live subscriber fails
// with ErrNoSubscribers instead of dropping the message.
type Bus struct {
	pubsub      *gochannel.GoChannel
	subscribers atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the pub/sub. logger may be nil.
func NewBus(cfg BusConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBusConfig().Buffer
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.Buffer,
		}, logger),
	}
}

// PublishRetrain publishes a retrain request.
func (b *Bus) PublishRetrain(_ context.Context, e RetrainRequested) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if b.subscribers.Load() == 0 {
		metrics.RecordRetrainEvent("unrouted")
		return ErrNoSubscribers
	}

	data, err := e.Marshal()
	if err != nil {
		return err
	}
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set("trigger", e.Trigger)

	if err := b.pubsub.Publish(TopicRetrain, msg); err != nil {
		return fmt.Errorf("publish retrain event: %w", err)
	}
	metrics.RecordRetrainEvent("published")
	return nil
}

// SubscribeRetrain returns the retrain request stream. The channel closes
// when ctx is done or the bus closes. Each message must be Acked or
// Nacked.
func (b *Bus) SubscribeRetrain(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicRetrain)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicRetrain, err)
	}
	b.subscribers.Add(1)
	context.AfterFunc(ctx, func() { b.subscribers.Add(-1) })
	return msgs, nil
}

// Close closes the pub/sub and all subscriber channels. Safe to call more
// than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
