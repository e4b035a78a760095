package sse

import (
	"context"
	"sync"
	"time"
)

// CheckinAnnouncement is one admitted attendee, pushed to dashboards
// watching the gate.
type CheckinAnnouncement struct {
	EventID      string     `json:"event_id"`
	TicketID     string     `json:"ticket_id"`
	AttendeeName string     `json:"attendee_name"`
	EventTitle   string     `json:"event_title"`
	CheckedInAt  *time.Time `json:"checked_in_at"`
}

// CheckinEventEmitter manages SSE connections and broadcasts successful
// check-ins to subscribed organizer dashboards.
type CheckinEventEmitter struct {
	eventClients     map[string][]chan CheckinAnnouncement
	eventClientMutex sync.RWMutex

	allClients     []chan CheckinAnnouncement
	allClientMutex sync.RWMutex
}

func NewCheckinEventEmitter() *CheckinEventEmitter {
	return &CheckinEventEmitter{
		eventClients: make(map[string][]chan CheckinAnnouncement),
	}
}

// SubscribeToEvent adds a client watching a single event's gate.
func (e *CheckinEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) chan CheckinAnnouncement {
	clientChan := make(chan CheckinAnnouncement, 10)

	e.eventClientMutex.Lock()
	e.eventClients[eventID] = append(e.eventClients[eventID], clientChan)
	e.eventClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeEventClient(eventID, clientChan)
	}()

	return clientChan
}

// Subscribe adds a client watching every check-in (admin overview).
func (e *CheckinEventEmitter) Subscribe(ctx context.Context) chan CheckinAnnouncement {
	clientChan := make(chan CheckinAnnouncement, 10)

	e.allClientMutex.Lock()
	e.allClients = append(e.allClients, clientChan)
	e.allClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeAllClient(clientChan)
	}()

	return clientChan
}

// Emit broadcasts an admitted check-in to all interested subscribers.
// Slow clients are skipped rather than blocking the gate.
func (e *CheckinEventEmitter) Emit(a CheckinAnnouncement) {
	e.eventClientMutex.RLock()
	for _, clientChan := range e.eventClients[a.EventID] {
		select {
		case clientChan <- a:
		default:
		}
	}
	e.eventClientMutex.RUnlock()

	e.allClientMutex.RLock()
	for _, clientChan := range e.allClients {
		select {
		case clientChan <- a:
		default:
		}
	}
	e.allClientMutex.RUnlock()
}

func (e *CheckinEventEmitter) removeEventClient(eventID string, clientChan chan CheckinAnnouncement) {
	e.eventClientMutex.Lock()
	defer e.eventClientMutex.Unlock()

	clients := e.eventClients[eventID]
	for i, c := range clients {
		if c == clientChan {
			e.eventClients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(e.eventClients[eventID]) == 0 {
		delete(e.eventClients, eventID)
	}
}

func (e *CheckinEventEmitter) removeAllClient(clientChan chan CheckinAnnouncement) {
	e.allClientMutex.Lock()
	defer e.allClientMutex.Unlock()

	for i, c := range e.allClients {
		if c == clientChan {
			e.allClients = append(e.allClients[:i], e.allClients[i+1:]...)
			close(clientChan)
			break
		}
	}
}
