package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/custody/service"
)

// ParticipantHandler handles HTTP requests for the participant registry.
type ParticipantHandler struct {
	svc    *service.CustodyService
	logger *zap.Logger
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(svc *service.CustodyService, logger *zap.Logger) *ParticipantHandler {
	return &ParticipantHandler{svc: svc, logger: logger}
}

// Register mounts the participant routes on the given router group.
func (h *ParticipantHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/participants")
	{
		p.POST("", h.RegisterParticipant)
		p.GET("", h.ListParticipants)
		p.GET("/:id", h.GetParticipant)
		p.GET("/:id/evidence", h.GetParticipantEvidence)
	}
}

// RegisterParticipant handles POST /participants.
func (h *ParticipantHandler) RegisterParticipant(c *gin.Context) {
	var req model.RegisterParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	p, err := h.svc.RegisterParticipant(c.Request.Context(), &req)
	if err != nil {
		failDomain(c, err)
		return
	}
	recordParticipantRegistered()
	SetPendingGauge(h.svc.PendingCount())
	ok(c, fmt.Sprintf("registered participant %s", p.Name), p)
}

// GetParticipant handles GET /participants/:id.
func (h *ParticipantHandler) GetParticipant(c *gin.Context) {
	p, err := h.svc.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	ok(c, "participant found", p)
}

// ListParticipants handles GET /participants.
func (h *ParticipantHandler) ListParticipants(c *gin.Context) {
	participants := h.svc.ListParticipants(c.Request.Context())
	ok(c, fmt.Sprintf("found %d participants", len(participants)), participants)
}

// GetParticipantEvidence handles GET /participants/:id/evidence — the active
// evidence currently in the participant's custody.
func (h *ParticipantHandler) GetParticipantEvidence(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.svc.GetParticipant(c.Request.Context(), id); err != nil {
		failDomain(c, err)
		return
	}
	items := h.svc.EvidenceByOwner(c.Request.Context(), id)
	ok(c, fmt.Sprintf("found %d evidence items", len(items)), items)
}
