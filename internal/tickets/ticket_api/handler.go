package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/apperr"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/sse"
	"ms-events/internal/utils"
)

type TicketService interface {
	Register(eventID, userID, tierID string) (*models.Ticket, error)
	Cancel(ticketID, requestingUserID string) error
	CheckIn(rawScan string, role models.UserRole) (*models.CheckInResult, error)
	GetForUser(eventID, userID string) (*models.TicketView, error)
	ListByUser(userID string) ([]models.TicketView, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
	CheckinFeed   *sse.CheckinEventEmitter
}

// RegisterForEvent handles POST /api/events/{eventID}/register
// Expected body: {"ticket_type_id": "..."}
func (h *Handler) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := auth.UserID(r.Context())

	var body struct {
		TicketTypeID string `json:"ticket_type_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.TicketTypeID == "" {
		h.writeError(w, http.StatusBadRequest, "ticket_type_id is required", nil)
		return
	}

	ticket, err := h.TicketService.Register(eventID, userID, body.TicketTypeID)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to register", err)
		return
	}

	if h.Logger != nil {
		h.Logger.LogTicket("REGISTER", ticket.ID, fmt.Sprintf("user %s registered for event %s", userID, eventID))
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket registered", ticket))
}

// CancelTicket handles DELETE /api/tickets/{ticketID}
func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	userID := auth.UserID(r.Context())

	if err := h.TicketService.Cancel(ticketID, userID); err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to cancel ticket", err)
		return
	}

	if h.Logger != nil {
		h.Logger.LogTicket("CANCEL", ticketID, "ticket canceled by owner")
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckinTicket handles POST /api/checkin
// Expected body: {"scan": "<qr payload or bare code>"}
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Scan string `json:"scan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Scan == "" {
		h.writeError(w, http.StatusBadRequest, "scan is required", nil)
		return
	}

	result, err := h.TicketService.CheckIn(body.Scan, auth.Role(r.Context()))
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Check-in failed", err)
		return
	}

	if h.Logger != nil {
		outcome := result.Reason
		if result.Accepted {
			outcome = fmt.Sprintf("accepted: %s @ %s", result.AttendeeName, result.EventTitle)
		}
		h.Logger.LogCheckin(body.Scan, outcome)
	}

	if result.Accepted && h.CheckinFeed != nil {
		h.CheckinFeed.Emit(sse.CheckinAnnouncement{
			EventID:      result.EventID,
			TicketID:     result.TicketID,
			AttendeeName: result.AttendeeName,
			EventTitle:   result.EventTitle,
			CheckedInAt:  result.CheckedInAt,
		})
	}

	utils.WriteJSON(w, http.StatusOK, result)
}

// ViewTicketForEvent handles GET /api/events/{eventID}/ticket — the
// caller's own live ticket with its QR data URL.
func (h *Handler) ViewTicketForEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	userID := auth.UserID(r.Context())

	view, err := h.TicketService.GetForUser(eventID, userID)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Ticket not found", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, view)
}

// ListMyTickets handles GET /api/tickets — the caller's ticket wallet.
func (h *Handler) ListMyTickets(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	views, err := h.TicketService.ListByUser(userID)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to fetch tickets", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
		if h.Logger != nil {
			h.Logger.Error("TICKET_API", fmt.Sprintf("%s: %v", message, err))
		}
	}
	utils.WriteError(w, status, message, detail)
}
