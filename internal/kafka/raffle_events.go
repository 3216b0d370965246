package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"drips/internal/config"
	"drips/internal/models"
)

// RaffleEventPublisher publishes raffle events to Kafka, keyed by raffle ID
// so that one raffle's events stay ordered within a partition.
type RaffleEventPublisher struct {
	writer *kafka.Writer
	Topic  string
}

func NewRaffleEventPublisher(cfg config.Config) *RaffleEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.Topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &RaffleEventPublisher{writer: writer, Topic: cfg.Kafka.Topic}
}

func (p *RaffleEventPublisher) Publish(ctx context.Context, events []models.RaffleEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := eventMessages(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.Topic, err)
	}
	return nil
}

func (p *RaffleEventPublisher) Close() error {
	return p.writer.Close()
}

func eventMessages(events []models.RaffleEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := eventStruct(e)
		if err != nil {
			return nil, fmt.Errorf("marshal raffle event %s/%s: %w", e.TransactionDigest, e.EventSeq, err)
		}
		value, err := proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("marshal raffle event %s/%s proto: %w", e.TransactionDigest, e.EventSeq, err)
		}
		key := e.RaffleID
		if key == "" {
			key = e.TransactionDigest
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(key),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}
	return msgs, nil
}

// eventStruct lays an event out as a protobuf Struct using the same field
// names as its JSON form. Data keeps the event's parsed payload.
func eventStruct(e models.RaffleEvent) (*structpb.Struct, error) {
	fields := map[string]any{
		"type":              string(e.Type),
		"moveType":          e.MoveType,
		"timestampMs":       e.TimestampMillis,
		"transactionDigest": e.TransactionDigest,
		"eventSeq":          e.EventSeq,
	}
	if e.RaffleID != "" {
		fields["raffleId"] = e.RaffleID
	}
	if e.Sender != "" {
		fields["sender"] = e.Sender
	}
	if len(e.Data) > 0 {
		fields["data"] = e.Data
	}
	return structpb.NewStruct(fields)
}
