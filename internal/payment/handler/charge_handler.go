package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/payment/services"
	"ms-events/internal/payment/storage"
	"ms-events/internal/utils"
)

type ChargeHandler struct {
	gateway *services.MockGateway
	store   storage.Store
	logger  *logger.Logger
}

func NewChargeHandler(gateway *services.MockGateway, store storage.Store, logger *logger.Logger) *ChargeHandler {
	return &ChargeHandler{
		gateway: gateway,
		store:   store,
		logger:  logger,
	}
}

// HandleTicketIssued is the Kafka consumer callback: every issued ticket
// gets a fabricated charge, dropped if one already exists for the ticket.
func (h *ChargeHandler) HandleTicketIssued(issued models.TicketIssuedEvent) {
	if existing, err := h.store.GetChargeByTicketID(issued.TicketID); err == nil {
		h.logger.Warn("GATEWAY", "Charge "+existing.ID+" already exists for ticket "+issued.TicketID+", skipping")
		return
	}

	charge, err := h.gateway.Charge(issued)
	if err != nil {
		h.logger.Error("GATEWAY", "Failed to fabricate charge for ticket "+issued.TicketID+": "+err.Error())
		return
	}

	if err := h.store.SaveCharge(charge); err != nil {
		h.logger.Error("GATEWAY", "Failed to persist charge "+charge.ID+": "+err.Error())
	}
}

// CreateCharge handles POST /payments/charge for manual or replayed charges.
func (h *ChargeHandler) CreateCharge(c *gin.Context) {
	var issued models.TicketIssuedEvent
	if err := c.ShouldBindJSON(&issued); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if issued.TicketID == "" || issued.EventID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "ticket_id and event_id are required"))
		return
	}

	if existing, err := h.store.GetChargeByTicketID(issued.TicketID); err == nil {
		c.JSON(http.StatusOK, utils.SuccessResponse("Charge already recorded", existing))
		return
	}

	charge, err := h.gateway.Charge(issued)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Charge rejected", err.Error()))
		return
	}

	if err := h.store.SaveCharge(charge); err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to persist charge", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Charge recorded", charge))
}

// GetCharge handles GET /payments/charges/:chargeID
func (h *ChargeHandler) GetCharge(c *gin.Context) {
	charge, err := h.store.GetCharge(c.Param("chargeID"))
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Charge not found", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Charge", charge))
}

// ListEventCharges handles GET /payments/events/:eventID
func (h *ChargeHandler) ListEventCharges(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	charges, err := h.store.ListCharges(c.Param("eventID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list charges", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Event charges", charges))
}

// RegisterRoutes wires the charge endpoints onto a gin engine.
func (h *ChargeHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/payments/charge", h.CreateCharge)
	r.GET("/payments/charges/:chargeID", h.GetCharge)
	r.GET("/payments/events/:eventID", h.ListEventCharges)
	r.GET("/health", func(c *gin.Context) {
		if err := h.store.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
