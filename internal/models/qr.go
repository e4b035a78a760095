package models

// QRPayload is the structured payload baked into a ticket's QR image. The
// scanner may also submit a bare code string, so Code is the only field the
// check-in path strictly requires.
type QRPayload struct {
	TicketID string `json:"ticketId"`
	Code     string `json:"code"`
	EventID  string `json:"eventId"`
}
