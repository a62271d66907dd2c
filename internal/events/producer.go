package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// Producer publishes envelopes asynchronously. Publish never blocks the
// request path on the broker; messages are queued on an inbox channel and
// written by a background goroutine.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer creates a producer for the given brokers. Topics are set
// per message.
func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until ctx is cancelled, then flushes what is
// left in the inbox and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							log.Printf("ERROR: close kafka writer: %v", err)
						}
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("ERROR: kafka write %s: %v", m.Topic, err)
	}
}

// Publish queues an envelope for the topic, keyed for partition affinity
// (typically the order id). Drops the event with a log line when the inbox
// is full rather than stalling the caller.
func (p *Producer) Publish(topic, key string, env Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		log.Printf("ERROR: marshal event %s: %v", env.EventType, err)
		return
	}
	m := kafka.Message{Topic: topic, Key: []byte(key), Value: raw}
	select {
	case p.inbox <- m:
	default:
		log.Printf("ERROR: kafka inbox full, dropping %s event for %s", env.EventType, key)
	}
}

// WaitClosed blocks until the write loop has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
