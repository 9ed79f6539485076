package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/model"
	"github.com/forensic-chain/forchain/internal/custody/service"
)

// EvidenceHandler handles HTTP requests for the evidence registry.
type EvidenceHandler struct {
	svc    *service.CustodyService
	logger *zap.Logger
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(svc *service.CustodyService, logger *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, logger: logger}
}

// Register mounts the evidence and case routes on the given router group.
func (h *EvidenceHandler) Register(rg *gin.RouterGroup) {
	e := rg.Group("/evidence")
	{
		e.POST("", h.CreateEvidence)
		e.GET("", h.ListEvidence)
		e.POST("/transfer", h.TransferEvidence)
		e.GET("/:id", h.GetEvidence)
		e.DELETE("/:id", h.DeactivateEvidence)
		e.GET("/:id/history", h.GetEvidenceHistory)
		e.POST("/:id/verify", h.VerifyEvidence)
	}

	rg.GET("/cases/:case_id/evidence", h.GetCaseEvidence)
}

// CreateEvidence handles POST /evidence.
func (h *EvidenceHandler) CreateEvidence(c *gin.Context) {
	var req model.CreateEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ev, err := h.svc.CreateEvidence(c.Request.Context(), &req)
	if err != nil {
		failDomain(c, err)
		return
	}
	recordEvidenceCreated()
	SetPendingGauge(h.svc.PendingCount())
	ok(c, fmt.Sprintf("evidence %s created", ev.EvidenceID), ev)
}

// GetEvidence handles GET /evidence/:id.
func (h *EvidenceHandler) GetEvidence(c *gin.Context) {
	ev, err := h.svc.GetEvidence(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDomain(c, err)
		return
	}
	ok(c, "evidence found", ev)
}

// ListEvidence handles GET /evidence?active_only=true|false (default true).
func (h *EvidenceHandler) ListEvidence(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") != "false"
	items := h.svc.ListEvidence(c.Request.Context(), activeOnly)
	ok(c, fmt.Sprintf("found %d evidence items", len(items)), items)
}

// TransferEvidence handles POST /evidence/transfer.
func (h *EvidenceHandler) TransferEvidence(c *gin.Context) {
	var req model.TransferEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	transfer, err := h.svc.TransferEvidence(c.Request.Context(), &req)
	if err != nil {
		failDomain(c, err)
		return
	}
	recordEvidenceTransferred()
	SetPendingGauge(h.svc.PendingCount())
	ok(c, fmt.Sprintf("custody transferred from %s to %s", transfer.FromOwner, transfer.ToOwner), transfer)
}

// DeactivateEvidence handles DELETE /evidence/:id. Deactivation is a soft
// delete; the chain keeps the full history.
func (h *EvidenceHandler) DeactivateEvidence(c *gin.Context) {
	var req model.DeactivateEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	id := c.Param("id")
	if err := h.svc.DeactivateEvidence(c.Request.Context(), id, req.RequesterID, req.Reason); err != nil {
		failDomain(c, err)
		return
	}
	SetPendingGauge(h.svc.PendingCount())
	ok(c, fmt.Sprintf("evidence %s deactivated; history preserved on chain", id), nil)
}

// GetEvidenceHistory handles GET /evidence/:id/history — the sealed
// transactions referencing the evidence, in chain order.
func (h *EvidenceHandler) GetEvidenceHistory(c *gin.Context) {
	history := h.svc.EvidenceHistory(c.Request.Context(), c.Param("id"))
	ok(c, fmt.Sprintf("found %d transactions", len(history)), history)
}

// VerifyEvidence handles POST /evidence/:id/verify — compares a supplied
// fingerprint against the recorded one.
func (h *EvidenceHandler) VerifyEvidence(c *gin.Context) {
	var req struct {
		FileHash string `json:"file_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	res, err := h.svc.VerifyEvidenceIntegrity(c.Request.Context(), c.Param("id"), req.FileHash)
	if err != nil {
		failDomain(c, err)
		return
	}
	if !res.Valid {
		h.logger.Warn("evidence fingerprint mismatch",
			zap.String("evidence_id", res.EvidenceID),
		)
		ok(c, "fingerprint mismatch: file differs from the recorded original", res)
		return
	}
	ok(c, "fingerprint matches the recorded original", res)
}

// GetCaseEvidence handles GET /cases/:case_id/evidence.
func (h *EvidenceHandler) GetCaseEvidence(c *gin.Context) {
	caseID := c.Param("case_id")
	items := h.svc.EvidenceByCase(c.Request.Context(), caseID)
	ok(c, fmt.Sprintf("found %d evidence items for case %s", len(items), caseID), items)
}
