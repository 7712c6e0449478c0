package api

import (
	"errors"
	"net/http"

	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/delivery"
	"whatsapp-crm/internal/store"

	"github.com/gin-gonic/gin"
)

type SendHandler struct {
	Decider *decision.Decider
	Router  *delivery.Router
}

func NewSendHandler(decider *decision.Decider, router *delivery.Router) *SendHandler {
	return &SendHandler{Decider: decider, Router: router}
}

type SendRequest struct {
	To           string `json:"to" binding:"required"`
	Type         string `json:"type"`
	Text         string `json:"text"`
	Caption      string `json:"caption"`
	MediaID      string `json:"media_id"`
	TemplateID   string `json:"template_id"`
	ReplyToID    string `json:"reply_to_id"`
	Priority     int    `json:"priority"`
	ForcedMethod string `json:"forced_method"` // skip window evaluation entirely
}

// SendMessage runs the full pipeline: window check, method decision,
// transport dispatch with fallback.
func (h *SendHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Type == "template" && req.TemplateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template sends require template_id"})
		return
	}

	var dec decision.Decision
	switch {
	case req.ForcedMethod != "":
		dec = decision.Forced(decision.Method(req.ForcedMethod))
	case req.Type == "template":
		dec = decision.Forced(decision.MethodTemplate)
	default:
		var err error
		dec, err = h.Decider.Decide(c.Request.Context(), req.To)
		if err != nil && !errors.Is(err, store.ErrContactNotFound) {
			// Degraded decision still delivers; surface the cause in logs only.
			c.Header("X-Decision-Degraded", "true")
		}
	}

	payload := &delivery.Payload{
		Type:       req.Type,
		Text:       req.Text,
		Caption:    req.Caption,
		MediaID:    req.MediaID,
		TemplateID: req.TemplateID,
		ReplyToID:  req.ReplyToID,
		Priority:   req.Priority,
	}

	result := h.Router.Send(c.Request.Context(), req.To, dec, payload)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"decision": dec, "result": result})
}

// GetDecision previews the transport decision and both windows for a contact.
func (h *SendHandler) GetDecision(c *gin.Context) {
	waID := c.Param("waId")

	dec, decErr := h.Decider.Decide(c.Request.Context(), waID)
	windows, _ := h.Decider.Windows(c.Request.Context(), waID)

	resp := gin.H{"decision": dec, "windows": windows}
	if decErr != nil {
		resp["degraded"] = decErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}
