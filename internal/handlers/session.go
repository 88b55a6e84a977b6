package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/services"
)

type SessionHandler struct {
	svc services.SessionService
}

func NewSessionHandler(svc services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type startSessionRequest struct {
	UserID         string `json:"userId"`
	SpecialistType string `json:"specialistType"`
	ConversationID string `json:"conversationId"`
	ContextSummary string `json:"contextSummary"`
}

// POST /api/v16/start-session
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	if req.SpecialistType == "" {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("specialistType is required"))
		return
	}

	// anonymous sessions carry no userId
	userID := uuid.Nil
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
			return
		}
		userID = parsed
	}

	var conversationID *uuid.UUID
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid conversationId"))
			return
		}
		conversationID = &parsed
	}

	session, err := h.svc.StartSession(c.Request.Context(), userID, req.SpecialistType, conversationID, req.ContextSummary)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSpecialistNotFound), errors.Is(err, services.ErrConversationNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, err)
		default:
			RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		}
		return
	}

	RespondOK(c, gin.H{"success": true, "session": session})
}

type endSessionRequest struct {
	ConversationID string `json:"conversationId"`
	ContextSummary string `json:"contextSummary"`
}

// POST /api/v16/end-session
func (h *SessionHandler) EndSession(c *gin.Context) {
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, err)
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid conversationId"))
		return
	}

	if err := h.svc.EndSession(c.Request.Context(), conversationID, req.ContextSummary); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			RespondError(c, http.StatusNotFound, CodeNotFound, err)
			return
		}
		RespondError(c, http.StatusInternalServerError, CodeUpstreamFailure, err)
		return
	}

	RespondOK(c, gin.H{"success": true})
}
