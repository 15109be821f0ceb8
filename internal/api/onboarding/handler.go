package onboarding

import (
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/onboarding"

	"github.com/gin-gonic/gin"
)

// Handler serves the anonymous questionnaire shown before sign-up.
type Handler struct {
	rec *onboarding.Recorder
}

func NewHandler(rec *onboarding.Recorder) *Handler {
	return &Handler{rec: rec}
}

// POST /onboarding/session
func (h *Handler) NewSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session_id": h.rec.GenerateSessionID()})
}

// POST /onboarding
func (h *Handler) Submit(c *gin.Context) {
	var body onboarding.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, onboarding.Result{Error: "Invalid request body"})
		return
	}

	res := h.rec.Save(c.Request.Context(), body)
	if !res.Success {
		status := respond.Status(res.Cause)
		if status >= http.StatusInternalServerError {
			res.Error = "Could not save your answers"
		}
		c.JSON(status, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /onboarding/:session_id
func (h *Handler) Get(c *gin.Context) {
	row, err := h.rec.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No answers for this session"})
		return
	}
	c.JSON(http.StatusOK, row)
}
