package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/reward"
	"gorm.io/gorm"
)

// RewardHandler runs the client side of the redemption workflow
type RewardHandler struct {
	db      *gorm.DB
	rewards *reward.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(db *gorm.DB) *RewardHandler {
	return &RewardHandler{
		db:      db,
		rewards: reward.NewRewardService(db),
	}
}

// BasketItemRequest is one basket line in a draft update
type BasketItemRequest struct {
	RewardID uuid.UUID `json:"reward_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

// BasketRequest represents the request body for draft updates
type BasketRequest struct {
	Items []BasketItemRequest `json:"items" binding:"required"`
}

// GetDraft returns the user's open draft basket, creating one if needed
func (h *RewardHandler) GetDraft(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	draft, err := h.rewards.GetOrCreateDraft(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": draft})
}

// SaveDraft replaces the draft basket's lines
func (h *RewardHandler) SaveDraft(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req BasketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.rewards.GetOrCreateDraft(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load draft"})
		return
	}

	updated, err := h.rewards.SaveItems(draft.ID, toSelections(req.Items))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save basket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": updated})
}

// Submit submits the draft basket, blocking the points
func (h *RewardHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	draft, err := h.rewards.GetOrCreateDraft(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load draft"})
		return
	}

	submitted, err := h.rewards.Submit(draft.ID, false)
	if errors.Is(err, reward.ErrBalanceExceeded) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Basket total exceeds your confirmed balance"})
		return
	}
	if errors.Is(err, reward.ErrInvalidState) {
		c.JSON(http.StatusConflict, gin.H{"error": "Request is not a draft"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": submitted})
}

// MyRequests lists the user's reward requests, newest first
func (h *RewardHandler) MyRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	var requests []models.RewardRequest
	var total int64

	query := h.db.Model(&models.RewardRequest{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count requests"})
		return
	}
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&requests).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests":  requests,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func toSelections(items []BasketItemRequest) []reward.ItemSelection {
	selections := make([]reward.ItemSelection, 0, len(items))
	for _, item := range items {
		selections = append(selections, reward.ItemSelection{
			RewardID: item.RewardID,
			Quantity: item.Quantity,
		})
	}
	return selections
}
