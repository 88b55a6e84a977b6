package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmratwork/risetwice-backend/internal/services"
)

type AdminHandler struct {
	specialists services.SpecialistPromptService
	greetings   services.GreetingService
}

func NewAdminHandler(specialists services.SpecialistPromptService, greetings services.GreetingService) *AdminHandler {
	return &AdminHandler{specialists: specialists, greetings: greetings}
}

// POST /api/admin/specialist-prompts
func (h *AdminHandler) UpsertSpecialistPrompt(c *gin.Context) {
	var input services.SpecialistPromptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}

	prompt, err := h.specialists.Upsert(c.Request.Context(), input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}

	RespondOK(c, gin.H{"success": true, "prompt": prompt})
}

type translateGreetingsRequest struct {
	TargetLanguage string `json:"targetLanguage"`
	Limit          int    `json:"limit"`
}

// POST /api/admin/translate-greetings
func (h *AdminHandler) TranslateGreetings(c *gin.Context) {
	var req translateGreetingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	if req.TargetLanguage == "" {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("targetLanguage is required"))
		return
	}

	stats, err := h.greetings.TranslateUntranslated(c.Request.Context(), req.TargetLanguage, req.Limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}

	RespondOK(c, gin.H{"success": true, "stats": stats})
}
