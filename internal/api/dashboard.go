package api

import (
	"net/http"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/store"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Store *store.Store
}

func NewDashboardHandler(st *store.Store) *DashboardHandler {
	return &DashboardHandler{Store: st}
}

func (h *DashboardHandler) GetMessages(c *gin.Context) {
	messages, err := h.Store.ListMessages(c.Request.Context(), c.Query("wa_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

func (h *DashboardHandler) GetAttempts(c *gin.Context) {
	attempts, err := h.Store.ListAttempts(c.Request.Context(), c.Query("wa_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if attempts == nil {
		attempts = []models.DeliveryAttempt{}
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *DashboardHandler) GetQueue(c *gin.Context) {
	entries, err := h.Store.ListQueue(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.QueueEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetStats aggregates delivery attempts per transport.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.Store.AttemptStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts_by_transport": stats})
}
