package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/segmentio/kafka-go"
)

const defaultTopic = "drawbot.bets"

// messageWriter es la parte de *kafka.Writer que usa el publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica cada cambio de estado de una apuesta como JSON,
// con el match id como clave para que los eventos de un partido caigan en
// la misma partición.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher crea un publisher contra brokers. topic vacío usa drawbot.bets.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events.NewKafkaPublisher: no brokers")
	}
	if topic == "" {
		topic = defaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaPublisher(w, topic), nil
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// Publish serializa el evento y lo escribe en el topic.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.BetEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events.Publish: marshal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.MatchID),
		Value: value,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.Publish: write %s to %s: %w", ev.Type, p.topic, err)
	}

	slog.Debug("events: published", "type", ev.Type, "match", ev.MatchID, "topic", p.topic)
	return nil
}

// Close vacía el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher descarta los eventos. Se usa cuando no hay brokers configurados.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.BetEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
