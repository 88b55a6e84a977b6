package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/logger"
	"github.com/tmratwork/risetwice-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewSSEHandler(log *logger.Logger, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{log: log.With("handler", "SSEHandler"), hub: hub}
}

// GET /sse/stream?userId=
//
// Subscribes the caller to their own user channel; job progress events
// arrive here without polling.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidation, fmt.Errorf("invalid userId"))
		return
	}

	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, userID.String())
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
