package handler

import (
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statementUploadURLTTL bounds how long a presigned statement upload stays valid
const statementUploadURLTTL = 15 * time.Minute

// ReconciliationHandler handles bank reconciliation API endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciliations *ledgerapp.ReconciliationService
	objectStorage   storage.ObjectStorageService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(
	reconciliations *ledgerapp.ReconciliationService,
	objectStorage storage.ObjectStorageService,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliations: reconciliations,
		objectStorage:   objectStorage,
	}
}

// StatementUploadURLRequest represents a request for a statement upload URL
type StatementUploadURLRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
}

// StatementUploadURLResponse carries the presigned upload target
type StatementUploadURLResponse struct {
	UploadURL    string    `json:"upload_url"`
	StatementKey string    `json:"statement_key"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// GenerateStatementUploadURL handles POST /reconciliations/statements/upload-url.
// The returned statement key is what StartReconciliation expects later.
func (h *ReconciliationHandler) GenerateStatementUploadURL(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req StatementUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "text/csv"
	}

	statementKey := uuid.New().String() + "-" + req.FileName
	objectKey := storage.StatementObjectKey(tenantID, statementKey)

	uploadURL, expiresAt, err := h.objectStorage.GenerateUploadURL(
		c.Request.Context(), objectKey, contentType, statementUploadURLTTL)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, StatementUploadURLResponse{
		UploadURL:    uploadURL,
		StatementKey: statementKey,
		ExpiresAt:    expiresAt,
	})
}

// RecordTransaction handles POST /bank-transactions
func (h *ReconciliationHandler) RecordTransaction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transaction, err := h.reconciliations.RecordTransaction(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, transaction)
}

// ListTransactions handles GET /bank-transactions
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter ledgerapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transactions, err := h.reconciliations.ListTransactions(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, transactions)
}

// StartReconciliation handles POST /reconciliations. The referenced
// statement file is imported and auto-matched as part of the call.
func (h *ReconciliationHandler) StartReconciliation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.StartReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reconciliation, err := h.reconciliations.StartReconciliation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, reconciliation)
}

// AcceptAdjustmentRequest represents a request to accept an unmatched item
type AcceptAdjustmentRequest struct {
	Description string `json:"description"`
}

// AcceptAsAdjustment handles POST /reconciliations/:id/items/:itemID/accept
func (h *ReconciliationHandler) AcceptAsAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID")
		return
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req AcceptAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reconciliation, err := h.reconciliations.AcceptAsAdjustment(
		c.Request.Context(), tenantID, reconciliationID, itemID, req.Description)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliation)
}

// ApproveAdjustmentItemRequest represents a request to approve an accepted item
type ApproveAdjustmentItemRequest struct {
	JournalEntryID uuid.UUID `json:"journal_entry_id" binding:"required"`
}

// ApproveAdjustmentItem handles POST /reconciliations/:id/items/:itemID/approve
func (h *ReconciliationHandler) ApproveAdjustmentItem(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID")
		return
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req ApproveAdjustmentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reconciliation, err := h.reconciliations.ApproveReconciliationAdjustment(
		c.Request.Context(), tenantID, reconciliationID, itemID, req.JournalEntryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliation)
}

// CompleteReconciliation handles POST /reconciliations/:id/complete
func (h *ReconciliationHandler) CompleteReconciliation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID")
		return
	}

	completedBy, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Completer identity required")
		return
	}

	reconciliation, err := h.reconciliations.CompleteReconciliation(
		c.Request.Context(), tenantID, reconciliationID, completedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliation)
}

// CancelReconciliation handles POST /reconciliations/:id/cancel
func (h *ReconciliationHandler) CancelReconciliation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID")
		return
	}

	reconciliation, err := h.reconciliations.CancelReconciliation(
		c.Request.Context(), tenantID, reconciliationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliation)
}

// GetReconciliation handles GET /reconciliations/:id
func (h *ReconciliationHandler) GetReconciliation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reconciliationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reconciliation ID")
		return
	}

	reconciliation, err := h.reconciliations.GetReconciliation(
		c.Request.Context(), tenantID, reconciliationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliation)
}

// ListReconciliations handles GET /reconciliations
func (h *ReconciliationHandler) ListReconciliations(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter ledgerapp.ReconciliationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reconciliations, err := h.reconciliations.ListReconciliations(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reconciliations)
}
