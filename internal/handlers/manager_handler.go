package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primabonus/backend/internal/models"
	"github.com/primabonus/backend/internal/services/approval"
	"github.com/primabonus/backend/internal/services/export"
	"github.com/primabonus/backend/internal/services/report"
	"github.com/primabonus/backend/internal/services/reward"
)

// defaultSMSMessage is the gateway text sent to clients; the single %d
// verb receives the confirmed balance.
const defaultSMSMessage = "Bonus program: you have %d points on your account. Details and redemption at https://bonus.example.com/"

// ManagerHandler serves the manager console: dashboard, approvals,
// request decisions, exports and client reporting.
type ManagerHandler struct {
	rewards   *reward.RewardService
	approvals *approval.ApprovalService
	exports   *export.ExportService
	reports   *report.ReportService
}

// NewManagerHandler creates a new manager handler
func NewManagerHandler(rewards *reward.RewardService, approvals *approval.ApprovalService, exports *export.ExportService, reports *report.ReportService) *ManagerHandler {
	return &ManagerHandler{
		rewards:   rewards,
		approvals: approvals,
		exports:   exports,
		reports:   reports,
	}
}

// Dashboard returns program-wide statistics
func (h *ManagerHandler) Dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ApproveRequest represents the request body for a manual approval run.
// Month is "2006-01"; empty means the month whose settlement lag has
// just elapsed.
type ApproveRequest struct {
	Month string `json:"month"`
}

// Approve confirms one settled month's pending points
func (h *ManagerHandler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var result *approval.Result
	var err error
	if req.Month == "" {
		result, err = h.approvals.ApproveDue(time.Now())
	} else {
		var month time.Time
		month, err = time.Parse("2006-01", req.Month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Month must be in YYYY-MM format"})
			return
		}
		result, err = h.approvals.ApproveMonth(month)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Approval run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"month":          result.Month.Format("2006-01"),
		"confirmed":      result.Confirmed,
		"users_notified": result.UsersNotified,
	})
}

// Requests lists reward requests for review
func (h *ManagerHandler) Requests(c *gin.Context) {
	page, pageSize := pagination(c)
	status := models.RequestStatus(c.Query("status"))

	requests, total, err := h.rewards.Requests(status, page, pageSize)
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

// UpdateRequestBody represents a manager's decision on a request
type UpdateRequestBody struct {
	Status models.RequestStatus `json:"status" binding:"required"`
	Items  []BasketItemRequest  `json:"items" binding:"required"`
	Note   string               `json:"note"`
	Reply  string               `json:"reply"`
}

// UpdateRequest applies a manager's edit and decision to one request
func (h *ManagerHandler) UpdateRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var body UpdateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.rewards.ManagerUpdate(requestID, body.Status, toSelections(body.Items), body.Note, body.Reply)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": updated})
}

// TelemarketingExport streams the fulfilment CSV for one accepted
// request and marks it finished.
func (h *ManagerHandler) TelemarketingExport(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	fileName, err := h.exports.TelemarketingFileName(requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := h.exports.WriteTelemarketingCSV(c.Writer, requestID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Request is not accepted or export failed"})
		return
	}
}

// SMSExportRequest represents the request body for the SMS export
type SMSExportRequest struct {
	MinPoints int    `json:"min_points"`
	Message   string `json:"message"`
}

// SMSExport streams the balance SMS gateway file
func (h *ManagerHandler) SMSExport(c *gin.Context) {
	var req SMSExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message := req.Message
	if message == "" {
		message = defaultSMSMessage
	}

	fileName := fmt.Sprintf("sms_export_%s.csv", time.Now().Format("20060102_1504"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if _, err := h.exports.WriteSMSBalanceCSV(c.Writer, req.MinPoints, message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate SMS export"})
		return
	}
}

// ClientTurnover returns one client's per-brand net turnover for a window
func (h *ManagerHandler) ClientTurnover(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}

	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().AddDate(-1, 0, 0).Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", time.Now().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
		return
	}

	rows, err := h.reports.ClientTurnover(userID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load turnover"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"turnover": rows, "from": from, "to": to})
}
