package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/evidencestore"
)

// StoreHandler exposes the evidence file repository over HTTP.
type StoreHandler struct {
	store  *evidencestore.Store
	logger *zap.Logger
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(store *evidencestore.Store, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{store: store, logger: logger}
}

// Register mounts the store routes on the given router group.
func (h *StoreHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/store")
	{
		s.POST("/upload", h.Upload)
		s.POST("/verify", h.VerifyStoredFile)
		s.GET("/stats", h.GetStats)
		s.GET("/case/:case_id", h.ListCaseFiles)
	}
}

// Upload handles POST /store/upload (multipart form: file, evidence_id,
// case_id). The file is hashed while it streams to disk; the returned record
// carries the locator and fingerprint the ledger should record.
func (h *StoreHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "no file provided")
		return
	}
	evidenceID := c.PostForm("evidence_id")
	caseID := c.PostForm("case_id")
	if evidenceID == "" || caseID == "" {
		fail(c, http.StatusBadRequest, "missing evidence_id or case_id")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer f.Close()

	rec, err := h.store.Save(evidenceID, caseID, fileHeader.Filename, f)
	if err != nil {
		h.logger.Error("store upload failed",
			zap.String("evidence_id", evidenceID),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, "failed to store file")
		return
	}
	ok(c, "file stored", rec)
}

// VerifyStoredFile handles POST /store/verify.
func (h *StoreHandler) VerifyStoredFile(c *gin.Context) {
	var req struct {
		StoragePath  string `json:"storage_path"  binding:"required"`
		ExpectedHash string `json:"expected_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	valid, err := h.store.VerifyFile(req.StoragePath, req.ExpectedHash)
	if err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	msg := "stored file matches the expected fingerprint"
	if !valid {
		msg = "stored file has been modified: fingerprint mismatch"
		h.logger.Warn("stored file fingerprint mismatch",
			zap.String("storage_path", req.StoragePath),
		)
	}
	ok(c, msg, gin.H{"valid": valid})
}

// GetStats handles GET /store/stats.
func (h *StoreHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		h.logger.Error("store stats failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to read store statistics")
		return
	}
	ok(c, "storage statistics", stats)
}

// ListCaseFiles handles GET /store/case/:case_id.
func (h *StoreHandler) ListCaseFiles(c *gin.Context) {
	files, err := h.store.ListByCase(c.Param("case_id"))
	if err != nil {
		h.logger.Error("store case listing failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to list case files")
		return
	}
	ok(c, fmt.Sprintf("found %d files", len(files)), files)
}
