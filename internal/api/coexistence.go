package api

import (
	"net/http"

	"whatsapp-crm/internal/coexistence"

	"github.com/gin-gonic/gin"
)

type CoexistenceHandler struct {
	Registry *coexistence.Registry
}

func NewCoexistenceHandler(registry *coexistence.Registry) *CoexistenceHandler {
	return &CoexistenceHandler{Registry: registry}
}

// StartVerification begins polling the provider for the number's activation
// status.
func (h *CoexistenceHandler) StartVerification(c *gin.Context) {
	phoneNumberID := c.Param("phoneNumberId")
	state := h.Registry.Start(phoneNumberID)
	c.JSON(http.StatusAccepted, gin.H{"phone_number_id": phoneNumberID, "state": state})
}

// GetVerification returns the last observed state.
func (h *CoexistenceHandler) GetVerification(c *gin.Context) {
	phoneNumberID := c.Param("phoneNumberId")
	state, ok := h.Registry.State(phoneNumberID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verification running for this number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone_number_id": phoneNumberID, "state": state})
}

// CancelVerification tears the polling loop down.
func (h *CoexistenceHandler) CancelVerification(c *gin.Context) {
	phoneNumberID := c.Param("phoneNumberId")
	if !h.Registry.Cancel(phoneNumberID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verification running for this number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Verification cancelled"})
}
