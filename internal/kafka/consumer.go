package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// StartTicketIssued consumes ticket issuance messages until the context is
// canceled, invoking handler for each decoded message.
func (c *Consumer) StartTicketIssued(ctx context.Context, handler func(issued models.TicketIssuedEvent)) {
	fmt.Println("Kafka consumer started...")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error reading message: %v\n", err)
			continue
		}

		var issued models.TicketIssuedEvent
		if err := json.Unmarshal(msg.Value, &issued); err != nil {
			log.Printf("Failed to unmarshal message: %v\n", err)
			continue
		}

		log.Printf("Received ticket issued event: ID=%s", issued.TicketID)
		handler(issued)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
