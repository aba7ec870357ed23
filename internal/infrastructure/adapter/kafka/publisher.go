package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"github.com/lunapay/payment-orchestrator/internal/domain/port/audit"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
)

// Config holds the kafka publisher settings
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher emits audit events on a kafka topic. Delivery is notify-don't-wait:
// Publish never blocks on broker acknowledgement and failures are only logged.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   coreport.Logger
	done     chan struct{}
}

var _ audit.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher and starts the error drain
func NewPublisher(config Config, logger coreport.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Return.Successes = false

	producer, err := sarama.NewAsyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		producer: producer,
		topic:    config.Topic,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p, nil
}

// Publish enqueues the event. The payment id keys the message so events for
// one payment stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to encode audit event", map[string]any{
			"event_type": event.Type,
			"payment_id": event.PaymentID,
			"error":      err.Error(),
		})
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PaymentID),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- msg:
	case <-ctx.Done():
		p.logger.Warn("Dropped audit event on context cancellation", map[string]any{
			"event_type": event.Type,
			"payment_id": event.PaymentID,
		})
	}
}

// Close shuts the producer down, flushing buffered messages
func (p *Publisher) Close() error {
	err := p.producer.Close()
	<-p.done
	return err
}

func (p *Publisher) drainErrors() {
	defer close(p.done)
	for perr := range p.producer.Errors() {
		p.logger.Error("Audit event delivery failed", map[string]any{
			"topic": perr.Msg.Topic,
			"error": perr.Err.Error(),
		})
	}
}
