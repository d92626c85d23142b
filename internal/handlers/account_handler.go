package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/contract"
	"github.com/primabonus/backend/internal/services/ledger"
	"gorm.io/gorm"
)

// AccountHandler serves the client's own point account: balance,
// history, contract and the reward catalogue.
type AccountHandler struct {
	db        *gorm.DB
	ledger    *ledger.LedgerService
	contracts *contract.ContractService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{
		db:        db,
		ledger:    ledger.NewLedgerService(db),
		contracts: contract.NewContractService(db),
	}
}

// currentUserID reads the authenticated user from the request context
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// Balance returns the user's confirmed balance and pending total
func (h *AccountHandler) Balance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	confirmed, err := h.ledger.ConfirmedBalance(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute balance"})
		return
	}
	pending, err := h.ledger.PendingTotal(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute pending total"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": confirmed,
		"pending": pending,
	})
}

// Transactions returns the user's point history, newest first
func (h *AccountHandler) Transactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	transactions, total, err := h.ledger.Transactions(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

// Contract returns the user's active contract with its brand bonuses and
// goals
func (h *AccountHandler) Contract(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	active, err := h.contracts.ActiveContract(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contract"})
		return
	}
	if active == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active contract"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract": active})
}

// Rewards lists the active reward catalogue
func (h *AccountHandler) Rewards(c *gin.Context) {
	query := h.db.Where("is_active = ?", true)
	if c.Query("showcase") == "true" {
		query = query.Where("in_showcase = ?", true)
	}

	var rewards []models.Reward
	if err := query.Order("name ASC").Find(&rewards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rewards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}
