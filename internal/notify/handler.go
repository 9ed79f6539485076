package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for event subscriptions.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a subscription Handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register registers the subscription routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	wh := rg.Group("/webhooks")
	{
		wh.POST("", h.CreateSubscription)
		wh.GET("", h.ListSubscriptions)
		wh.DELETE("/:id", h.DeleteSubscription)
		wh.GET("/:id/deliveries", h.ListDeliveries)
	}
}

// CreateSubscription handles POST /webhooks — creates a new subscription.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.svc.Subscribe(&req)
	if err != nil {
		h.logger.Error("create event subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	// Return the secret once so the subscriber can store it.
	c.JSON(http.StatusCreated, gin.H{
		"subscription": sub,
		"secret":       sub.Secret,
		"note":         "Store the secret securely. It will not be shown again.",
	})
}

// ListSubscriptions handles GET /webhooks.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs := h.svc.List()
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "count": len(subs)})
}

// DeleteSubscription handles DELETE /webhooks/:id.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription ID"})
		return
	}

	if err := h.svc.Unsubscribe(subID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDeliveries handles GET /webhooks/:id/deliveries — the recent delivery
// attempts for one subscription.
func (h *Handler) ListDeliveries(c *gin.Context) {
	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription ID"})
		return
	}

	deliveries := h.svc.Deliveries(subID)
	if deliveries == nil {
		deliveries = []*Delivery{}
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries, "count": len(deliveries)})
}
