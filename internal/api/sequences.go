package api

import (
	"errors"
	"net/http"
	"strconv"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/sequence"
	"whatsapp-crm/internal/store"

	"github.com/gin-gonic/gin"
)

type SequenceHandler struct {
	Store  *store.Store
	Runner *sequence.Runner
}

func NewSequenceHandler(st *store.Store, runner *sequence.Runner) *SequenceHandler {
	return &SequenceHandler{Store: st, Runner: runner}
}

func (h *SequenceHandler) ListSequences(c *gin.Context) {
	seqs, err := h.Store.ListSequences(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if seqs == nil {
		seqs = []models.Sequence{}
	}
	c.JSON(http.StatusOK, seqs)
}

func (h *SequenceHandler) CreateSequence(c *gin.Context) {
	var seq models.Sequence
	if err := c.ShouldBindJSON(&seq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Keyword conditions without keywords should be caught at authoring time.
	for _, step := range seq.Steps {
		if step.Condition == sequence.ConditionIfMessageContains && len(sequence.ParseKeywords(step.Keywords)) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "if_message_contains steps require keywords"})
			return
		}
	}

	if err := h.Store.CreateSequence(c.Request.Context(), &seq); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, seq)
}

type EnrollRequest struct {
	WaID string `json:"wa_id" binding:"required"`
}

// Enroll starts a contact at the sequence's first step.
func (h *SequenceHandler) Enroll(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sequence id"})
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Runner.Enroll(c.Request.Context(), req.WaID, uint(id)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrContactNotFound) || errors.Is(err, store.ErrSequenceNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact enrolled"})
}

// Advance re-evaluates the contact's current step; used by operators to
// push a stuck enrollment.
func (h *SequenceHandler) Advance(c *gin.Context) {
	waID := c.Param("waId")
	if err := h.Runner.Advance(c.Request.Context(), waID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrContactNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Sequence advanced"})
}
