package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-property-management/shared/config"
)

// Producer writes events to kafka from a pool of workers so request
// handlers never block on the broker
type Producer struct {
	writer      *kafka.Writer
	topic       string
	queue       chan Event
	workerCount int
	log         *logrus.Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewProducer creates a producer and starts its workers
func NewProducer(cfg *config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	p := &Producer{
		writer:      writer,
		topic:       cfg.Topic,
		queue:       make(chan Event, 1000),
		workerCount: 4,
		log:         logrus.WithField("component", "event-producer"),
	}
	p.startWorkers()
	return p
}

func (p *Producer) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.WithField("workers", p.workerCount).Info("Started event workers")
}

// worker drains the queue until it is closed
func (p *Producer) worker(id int) {
	defer p.wg.Done()

	for ev := range p.queue {
		if err := p.send(ev); err != nil {
			p.log.WithFields(logrus.Fields{
				"worker":     id,
				"event_type": ev.Type,
				"org_id":     ev.OrgID,
			}).WithError(err).Error("Failed to send event")
		}
	}
}

// Publish queues an event without blocking
func (p *Producer) Publish(ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer closed, %s dropped", ev.Type)
	}

	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Producer) send(ev Event) error {
	msg, err := ev.Message(p.topic)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}
	return nil
}

// Close stops accepting events, flushes what is queued and closes the writer
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	p.log.Info("Event producer stopped")
	return nil
}
