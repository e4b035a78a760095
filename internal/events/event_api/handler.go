package event_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/apperr"
	"ms-events/internal/auth"
	"ms-events/internal/cache"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type EventService interface {
	Create(organizerID string, role models.UserRole, in models.EventInput) (*models.Event, error)
	Get(id string) (*models.EventWithCounts, error)
	ListPublished(loggedIn bool) ([]models.Event, error)
	ListByOrganizer(organizerID string) ([]models.Event, error)
	Update(eventID, requesterID string, role models.UserRole, in models.EventInput) (*models.Event, error)
	Publish(eventID, requesterID string, role models.UserRole) error
	Unpublish(eventID, requesterID string, role models.UserRole) error
	Delete(eventID, requesterID string, role models.UserRole) error
}

type Handler struct {
	EventService EventService
	Views        *cache.Views
	Logger       *logger.Logger
}

// CreateEvent handles POST /api/events — organizer only; new events start
// in draft with one tier derived from price/capacity.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.EventService.Create(auth.UserID(r.Context()), auth.Role(r.Context()), in)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to create event", err)
		return
	}

	if h.Logger != nil {
		h.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("draft event %q created", event.Title))
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

// GetEvent handles GET /api/events/{eventID}, served from the Redis view
// cache when warm.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	ctx := r.Context()

	if body, ok := h.Views.Get(ctx, cache.EventViewKey(eventID)); ok {
		writeCachedJSON(w, body)
		return
	}

	view, err := h.EventService.Get(eventID)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Event not found", err)
		return
	}

	h.respondAndCache(ctx, w, cache.EventViewKey(eventID), view)
}

// ListEvents handles GET /api/events. Anonymous callers only see public
// published events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	loggedIn := r.Header.Get("Authorization") != ""
	ctx := r.Context()

	// Only the anonymous listing is cacheable; the logged-in one includes
	// private events.
	if !loggedIn {
		if body, ok := h.Views.Get(ctx, cache.EventListKey()); ok {
			writeCachedJSON(w, body)
			return
		}
	}

	events, err := h.EventService.ListPublished(loggedIn)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to list events", err)
		return
	}

	if !loggedIn {
		h.respondAndCache(ctx, w, cache.EventListKey(), events)
		return
	}
	utils.WriteJSON(w, http.StatusOK, events)
}

// ListMyEvents handles GET /api/events/mine — the organizer dashboard list.
func (h *Handler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.ListByOrganizer(auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to list events", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, events)
}

// UpdateEvent handles PUT /api/events/{eventID}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var in models.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.EventService.Update(eventID, auth.UserID(r.Context()), auth.Role(r.Context()), in)
	if err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to update event", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", event))
}

// PublishEvent handles POST /api/events/{eventID}/publish
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.EventService.Publish, "Event published")
}

// UnpublishEvent handles POST /api/events/{eventID}/unpublish
func (h *Handler) UnpublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.EventService.Unpublish, "Event unpublished")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, op func(string, string, models.UserRole) error, message string) {
	eventID := chi.URLParam(r, "eventID")

	if err := op(eventID, auth.UserID(r.Context()), auth.Role(r.Context())); err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to change event status", err)
		return
	}

	if h.Logger != nil {
		h.Logger.LogEvent("STATUS", eventID, message)
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, nil))
}

// DeleteEvent handles DELETE /api/events/{eventID} — the soft-delete
// cascade that cancels every ticket of the event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	if err := h.EventService.Delete(eventID, auth.UserID(r.Context()), auth.Role(r.Context())); err != nil {
		h.writeError(w, apperr.HTTPStatus(err), "Failed to delete event", err)
		return
	}

	if h.Logger != nil {
		h.Logger.LogEvent("DELETE", eventID, "event canceled with ticket cascade")
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondAndCache(ctx context.Context, w http.ResponseWriter, key string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
		return
	}
	h.Views.Set(ctx, key, string(body))
	writeCachedJSON(w, string(body))
}

func writeCachedJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
		if h.Logger != nil {
			h.Logger.Error("EVENT_API", fmt.Sprintf("%s: %v", message, err))
		}
	}
	utils.WriteError(w, status, message, detail)
}
