package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/custody/service"
	"github.com/forensic-chain/forchain/internal/hashing"
)

// ChainHandler exposes read-only chain introspection plus the hash utility.
type ChainHandler struct {
	svc    *service.CustodyService
	logger *zap.Logger
}

// NewChainHandler creates a new ChainHandler.
func NewChainHandler(svc *service.CustodyService, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{svc: svc, logger: logger}
}

// Register mounts the chain routes on the given router group.
func (h *ChainHandler) Register(rg *gin.RouterGroup) {
	b := rg.Group("/blockchain")
	{
		b.GET("", h.GetChain)
		b.GET("/info", h.GetInfo)
		b.GET("/verify", h.VerifyChain)
	}

	rg.POST("/hash", h.Hash)
}

// GetChain handles GET /blockchain — the full block sequence.
func (h *ChainHandler) GetChain(c *gin.Context) {
	blocks := h.svc.Chain(c.Request.Context())
	ok(c, "chain", blocks)
}

// GetInfo handles GET /blockchain/info.
func (h *ChainHandler) GetInfo(c *gin.Context) {
	ok(c, "chain info", h.svc.Info(c.Request.Context()))
}

// VerifyChain handles GET /blockchain/verify. A failed verification is an
// integrity alarm: it is logged loudly and reported, never repaired.
func (h *ChainHandler) VerifyChain(c *gin.Context) {
	if err := h.svc.Verify(c.Request.Context()); err != nil {
		h.logger.Error("chain integrity check FAILED", zap.Error(err))
		recordVerificationFailure()
		c.JSON(http.StatusOK, response{
			Success: false,
			Message: "chain verification failed: " + err.Error(),
			Data:    gin.H{"valid": false},
		})
		return
	}
	ok(c, "chain verified", gin.H{"valid": true})
}

// Hash handles POST /hash — the SHA-256 utility endpoint.
func (h *ChainHandler) Hash(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	ok(c, "hash computed", gin.H{"hash": hashing.Sum([]byte(req.Content))})
}

// Health returns the health handler for GET /healthz.
func (h *ChainHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		valid := h.svc.Verify(c.Request.Context()) == nil
		status := http.StatusOK
		if !valid {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":             statusWord(valid),
			"blockchain_valid":   valid,
			"total_blocks":       h.svc.Info(c.Request.Context()).TotalBlocks,
			"total_evidence":     h.svc.EvidenceCount(),
			"total_participants": h.svc.ParticipantCount(),
		})
	}
}

func statusWord(valid bool) string {
	if valid {
		return "healthy"
	}
	return "integrity_alarm"
}
