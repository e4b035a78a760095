package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/config"
	"ms-events/internal/models"
)

// messageWriter is the slice of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes lifecycle messages to the configured topics. Topic
// names come from config so overriding KAFKA_TOPIC_* moves the producer
// and EnsureTopicsExist together.
type Producer struct {
	writer messageWriter
	topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
	})
	return &Producer{writer: writer, topics: topics}
}

// Publish writes a raw message to the given topic.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishTicketIssued streams a registration to Kafka; the payment service
// picks paid tiers off this topic.
func (p *Producer) PublishTicketIssued(issued models.TicketIssuedEvent) error {
	msgBytes, err := json.Marshal(issued)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [ticket_issued]: %s\n", string(msgBytes))

	return p.Publish(p.topics.TicketIssued, issued.TicketID, msgBytes)
}

// PublishTicketCanceled streams a ticket cancellation event to Kafka
func (p *Producer) PublishTicketCanceled(ticket models.Ticket) error {
	msgBytes, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [ticket_canceled]: %s\n", string(msgBytes))

	return p.Publish(p.topics.TicketCanceled, ticket.ID, msgBytes)
}

// PublishTicketCheckedIn streams a successful check-in event to Kafka
func (p *Producer) PublishTicketCheckedIn(ticket models.Ticket) error {
	msgBytes, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [ticket_checkedin]: %s\n", string(msgBytes))

	return p.Publish(p.topics.TicketCheckedIn, ticket.ID, msgBytes)
}

// PublishEventPublished streams an event publication to Kafka
func (p *Producer) PublishEventPublished(event models.Event) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [event_published]: %s\n", string(msgBytes))

	return p.Publish(p.topics.EventPublished, event.ID, msgBytes)
}

// PublishEventCanceled streams an event cancellation (cascade) to Kafka
func (p *Producer) PublishEventCanceled(event models.Event) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [event_canceled]: %s\n", string(msgBytes))

	return p.Publish(p.topics.EventCanceled, event.ID, msgBytes)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
