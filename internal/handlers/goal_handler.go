package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/jobs"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/gorm"
)

// GoalHandler exposes goal evaluations to managers
type GoalHandler struct {
	db      *gorm.DB
	goalJob *jobs.GoalEvaluationJob
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(db *gorm.DB, goalJob *jobs.GoalEvaluationJob) *GoalHandler {
	return &GoalHandler{
		db:      db,
		goalJob: goalJob,
	}
}

// TriggerSweep queues an immediate goal evaluation sweep
func (h *GoalHandler) TriggerSweep(c *gin.Context) {
	jobID, err := h.goalJob.Enqueue()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue goal sweep"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// Evaluations lists one goal's evaluations, oldest period first
func (h *GoalHandler) Evaluations(c *gin.Context) {
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid goal ID"})
		return
	}

	var evaluations []models.GoalEvaluation
	err = h.db.Where("goal_id = ?", goalID).
		Order("period_start ASC").
		Find(&evaluations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load evaluations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluations": evaluations})
}
