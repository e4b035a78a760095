package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/apperr"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/sse"
	"ms-events/internal/stats"
	"ms-events/internal/utils"
)

type Handler struct {
	Stats       *stats.Service
	CheckinFeed *sse.CheckinEventEmitter
	Logger      *logger.Logger
}

// OrganizerDashboard handles GET /api/stats/dashboard — totals plus recent
// activity for the calling organizer. Admin only.
func (h *Handler) OrganizerDashboard(w http.ResponseWriter, r *http.Request) {
	if auth.Role(r.Context()) != models.RoleAdmin {
		h.writeError(w, http.StatusForbidden, "Organizer role required", apperr.ErrUnauthorized)
		return
	}

	dashboard, err := h.Stats.GetOrganizerStats(auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load dashboard", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Dashboard stats", dashboard))
}

// EventAttendees handles GET /api/stats/events/{eventID}/attendees — the
// door list for one event. Admin only.
func (h *Handler) EventAttendees(w http.ResponseWriter, r *http.Request) {
	if auth.Role(r.Context()) != models.RoleAdmin {
		h.writeError(w, http.StatusForbidden, "Organizer role required", apperr.ErrUnauthorized)
		return
	}

	eventID := chi.URLParam(r, "eventID")
	attendees, err := h.Stats.GetEventAttendees(eventID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load attendees", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event attendees", attendees))
}

// StreamEventCheckins handles GET /api/stats/events/{eventID}/checkins/stream
// and pushes every accepted check-in for the event over SSE. The route sits
// outside the OIDC middleware because EventSource clients can't set an
// Authorization header; the token comes from the request itself.
func (h *Handler) StreamEventCheckins(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	userID, err := h.verifyStreamAccess(r)
	if err != nil {
		h.writeError(w, http.StatusForbidden, "Organizer role required", err)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()

	feed := h.CheckinFeed.SubscribeToEvent(ctx, eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventID\":%q}\n\n", eventID)
	w.(http.Flusher).Flush()

	if h.Logger != nil {
		h.Logger.Info("SSE", fmt.Sprintf("User %s connected to check-in stream for event: %s", userID, eventID))
	}

	h.stream(ctx, w, feed, eventID)
}

// StreamAllCheckins handles GET /api/stats/checkins/stream — the venue-wide
// check-in feed.
func (h *Handler) StreamAllCheckins(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifyStreamAccess(r)
	if err != nil {
		h.writeError(w, http.StatusForbidden, "Organizer role required", err)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()

	feed := h.CheckinFeed.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	w.(http.Flusher).Flush()

	if h.Logger != nil {
		h.Logger.Info("SSE", fmt.Sprintf("User %s connected to the venue-wide check-in stream", userID))
	}

	h.stream(ctx, w, feed, "all")
}

// verifyStreamAccess authenticates an SSE request from its bearer token or
// `token` query parameter and requires the admin role.
func (h *Handler) verifyStreamAccess(r *http.Request) (string, error) {
	token, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		return "", fmt.Errorf("failed to extract token: %w", err)
	}

	userID, err := auth.ExtractUserIDFromJWT(token)
	if err != nil {
		return "", fmt.Errorf("failed to extract user ID: %w", err)
	}

	role, err := auth.ExtractRoleFromJWT(token)
	if err != nil {
		return "", fmt.Errorf("failed to extract role: %w", err)
	}
	if models.UserRole(role) != models.RoleAdmin {
		return "", fmt.Errorf("user %s lacks the admin role: %w", userID, apperr.ErrUnauthorized)
	}

	return userID, nil
}

func (h *Handler) stream(ctx context.Context, w http.ResponseWriter, feed chan sse.CheckinAnnouncement, label string) {
	for {
		select {
		case announcement, ok := <-feed:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(announcement)
			if err != nil {
				if h.Logger != nil {
					h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize check-in event: %v", err))
				}
				continue
			}
			fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", jsonData)
			w.(http.Flusher).Flush()

		case <-ctx.Done():
			if h.Logger != nil {
				h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from check-in stream: %s", label))
			}
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
		if h.Logger != nil {
			h.Logger.Error("STATS_API", fmt.Sprintf("%s: %v", message, err))
		}
	}
	utils.WriteError(w, status, message, detail)
}
