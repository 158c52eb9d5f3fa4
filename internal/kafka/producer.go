package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w     *kafka.Writer
	inbox chan kafka.Message

	quit      chan struct{} // closed by Close; publishes after this are dropped
	closeCh   chan struct{} // closed when the loop has flushed and exited
	closeOnce sync.Once
	doneOnce  sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		quit:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer p.finish()
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-ctx.Done():
				p.drain()
				return
			case <-p.quit:
				p.drain()
				return
			}
		}
	}()
}

// drain flushes whatever is buffered. The inbox is never closed, so a caller
// still finishing its run cannot panic the producer; its events are dropped
// by Publish instead.
func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	// Events are advisory: a publish failure must never fail the run.
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Warn().Err(err).Str("topic", p.w.Topic).Msg("kafka publish failed")
	}
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case <-p.quit:
		log.Warn().Str("topic", p.w.Topic).Msg("producer closed, event dropped")
		return
	case <-p.closeCh:
		log.Warn().Str("topic", p.w.Topic).Msg("producer stopped, event dropped")
		return
	default:
	}
	select {
	case <-p.quit:
		log.Warn().Str("topic", p.w.Topic).Msg("producer closed, event dropped")
	case <-p.closeCh:
		log.Warn().Str("topic", p.w.Topic).Msg("producer stopped, event dropped")
	case p.inbox <- m:
	}
}

// Close stops accepting messages; the loop flushes what is buffered and
// exits. Safe to call more than once, and it may race a context cancel.
func (p *Producer) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
}

func (p *Producer) finish() {
	p.doneOnce.Do(func() {
		_ = p.w.Close()
		close(p.closeCh)
	})
}

func (p *Producer) WaitClosed() { <-p.closeCh }
