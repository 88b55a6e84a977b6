package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/services"
)

type MemoryHandler struct {
	svc services.MemoryService
}

func NewMemoryHandler(svc services.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type processMemoryRequest struct {
	UserID string `json:"userId"`
	Offset int    `json:"offset"`
}

// POST /api/v16/process-memory
func (h *MemoryHandler) ProcessMemory(c *gin.Context) {
	var req processMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
		return
	}

	memory, stats, err := h.svc.ProcessMemory(c.Request.Context(), userID, req.Offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}

	RespondOK(c, gin.H{
		"success": true,
		"memory":  memory,
		"stats":   stats,
	})
}

// GET /api/v16/memory?userId=
func (h *MemoryHandler) GetLatest(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
		return
	}

	snapshot, err := h.svc.GetLatest(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}
	if snapshot == nil {
		RespondError(c, http.StatusNotFound, CodeNotFound, fmt.Errorf("no memory for user"))
		return
	}

	RespondOK(c, gin.H{"success": true, "memory": snapshot})
}
