package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/config"
	"ms-events/internal/models"
)

// recordingWriter captures messages instead of talking to a broker.
type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func overriddenTopics() config.TopicConfig {
	return config.TopicConfig{
		TicketIssued:    "custom.ticket.issued",
		TicketCanceled:  "custom.ticket.canceled",
		TicketCheckedIn: "custom.ticket.checkedin",
		EventPublished:  "custom.event.published",
		EventCanceled:   "custom.event.canceled",
	}
}

// Overridden KAFKA_TOPIC_* names must route every publish helper, not just
// the topic-ensure step at startup.
func TestPublishHelpersUseConfiguredTopics(t *testing.T) {
	writer := &recordingWriter{}
	producer := &Producer{writer: writer, topics: overriddenTopics()}

	ticket := models.Ticket{ID: "t1", EventID: "event1"}
	event := models.Event{ID: "event1", Title: "Launch Night"}

	if err := producer.PublishTicketIssued(models.TicketIssuedEvent{TicketID: "t1"}); err != nil {
		t.Fatalf("PublishTicketIssued failed: %v", err)
	}
	if err := producer.PublishTicketCanceled(ticket); err != nil {
		t.Fatalf("PublishTicketCanceled failed: %v", err)
	}
	if err := producer.PublishTicketCheckedIn(ticket); err != nil {
		t.Fatalf("PublishTicketCheckedIn failed: %v", err)
	}
	if err := producer.PublishEventPublished(event); err != nil {
		t.Fatalf("PublishEventPublished failed: %v", err)
	}
	if err := producer.PublishEventCanceled(event); err != nil {
		t.Fatalf("PublishEventCanceled failed: %v", err)
	}

	want := []string{
		"custom.ticket.issued",
		"custom.ticket.canceled",
		"custom.ticket.checkedin",
		"custom.event.published",
		"custom.event.canceled",
	}
	if len(writer.messages) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(writer.messages))
	}
	for i, topic := range want {
		if writer.messages[i].Topic != topic {
			t.Errorf("Expected message %d on topic %s, got %s", i, topic, writer.messages[i].Topic)
		}
		if len(writer.messages[i].Key) == 0 {
			t.Errorf("Expected message %d to carry a key", i)
		}
	}
}

func TestNewProducerStoresTopics(t *testing.T) {
	producer := NewProducer([]string{"localhost:9092"}, overriddenTopics())
	defer producer.Close()

	if producer.topics.TicketIssued != "custom.ticket.issued" {
		t.Errorf("Expected configured topic, got %s", producer.topics.TicketIssued)
	}
}
