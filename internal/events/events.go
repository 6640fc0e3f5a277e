// Package events publishes one Kafka record per proxied snapshot.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// SnapshotEvent describes a finished fetch. It never carries the token or
// the full URL.
type SnapshotEvent struct {
	Endpoint    string    `json:"endpoint"`
	Status      int       `json:"status"`
	Outcome     string    `json:"outcome"`
	DurationMS  int64     `json:"duration_ms"`
	Fingerprint string    `json:"fingerprint"`
	Overlays    int       `json:"overlays"`
	TS          time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	events  chan SnapshotEvent
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewPublisher dials the brokers with an async producer.
func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return NewPublisherWithProducer(prod, topic, queueSize, log), nil
}

// NewPublisherWithProducer takes ownership of prod.
func NewPublisherWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan SnapshotEvent, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("events: marshal error", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Fingerprint),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("events: producer error", "err", err.Err)
			}
		}
	}()

	return p
}

// Publish never blocks; a full queue drops the event.
func (p *Publisher) Publish(ev SnapshotEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
		p.log.Debug("events: queue full, dropping", "fingerprint", ev.Fingerprint)
	}
}

// Close drains queued events into the producer and closes it.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
