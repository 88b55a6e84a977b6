package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/services"
)

type PromptHandler struct {
	svc services.PromptService
}

func NewPromptHandler(svc services.PromptService) *PromptHandler {
	return &PromptHandler{svc: svc}
}

type savePromptRequest struct {
	UserID   string `json:"userId"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Title    string `json:"title"`
	Notes    string `json:"notes"`
}

// POST /api/v15/save-prompt
func (h *PromptHandler) SavePrompt(c *gin.Context) {
	var req savePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	if req.Category == "" || req.Content == "" {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("category and content are required"))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
		return
	}

	prompt, version, err := h.svc.SavePrompt(c.Request.Context(), userID, req.Category, req.Content, req.Title, req.Notes)
	if err != nil {
		if strings.Contains(err.Error(), "not allowed") {
			RespondError(c, http.StatusBadRequest, CodeCategoryNotAllowed, err)
			return
		}
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}

	RespondOK(c, gin.H{
		"success": true,
		"prompt":  prompt,
		"version": version,
	})
}

// GET /api/v15/prompts?category=
func (h *PromptHandler) GetCurrent(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("missing category"))
		return
	}

	content, err := h.svc.ResolveContent(c.Request.Context(), category)
	if err != nil {
		RespondError(c, http.StatusNotFound, CodeNotFound, err)
		return
	}

	RespondOK(c, gin.H{
		"success":  true,
		"category": category,
		"content":  content,
	})
}
