package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/services"
	"github.com/tmratwork/risetwice-backend/internal/types"
)

type SummaryHandler struct {
	svc services.SummaryService
}

func NewSummaryHandler(svc services.SummaryService) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

type generateSummaryRequest struct {
	UserID string `json:"userId"`
}

// POST /api/v11/generate-summary-sheet
func (h *SummaryHandler) GenerateSummarySheet(c *gin.Context) {
	var req generateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
		return
	}

	job, err := h.svc.EnqueueSummarySheet(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsightsOptInRequired):
			c.JSON(http.StatusForbidden, gin.H{
				"error":         ErrorEnvelope{Error: APIError{Message: err.Error(), Code: CodeRequiresOptIn}}.Error,
				"requiresOptIn": true,
			})
		case errors.Is(err, services.ErrUserNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, err)
		default:
			RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		}
		return
	}

	RespondOK(c, gin.H{
		"success":            true,
		"jobId":              job.ID,
		"status":             job.Status,
		"totalConversations": job.TotalConversations,
	})
}

// GET /api/v11/generate-summary-sheet?jobId=
func (h *SummaryHandler) GetJobStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Query("jobId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid jobId"))
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			RespondError(c, http.StatusNotFound, CodeNotFound, err)
			return
		}
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}

	resp := gin.H{
		"jobId":    job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.Status == types.JobStatusCompleted {
		if sheet, err := h.svc.GetSheetForJob(c.Request.Context(), job.ID); err == nil && sheet != nil {
			resp["summaryContent"] = sheet.SummaryContent
			resp["sharingToken"] = sheet.SharingToken
			resp["url"] = "/api/v11/summary-sheet/" + sheet.SharingToken
		}
	}
	RespondOK(c, resp)
}

// GET /api/v11/summary-sheet/:token
func (h *SummaryHandler) GetSheetByToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("missing token"))
		return
	}

	sheet, err := h.svc.GetSheetByToken(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSheetExpired):
			RespondError(c, http.StatusNotFound, CodeSheetExpired, err)
		case errors.Is(err, services.ErrSheetNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, err)
		default:
			RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		}
		return
	}

	RespondOK(c, gin.H{
		"success":        true,
		"summaryContent": sheet.SummaryContent,
		"generatedAt":    sheet.GeneratedAt,
		"expiresAt":      sheet.ExpiresAt,
	})
}
