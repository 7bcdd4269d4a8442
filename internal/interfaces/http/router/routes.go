package router

import (
	"github.com/erp/ledger/internal/interfaces/http/handler"
)

// LedgerHandlers bundles the handlers mounted under the versioned API
type LedgerHandlers struct {
	Accounts        *handler.AccountHandler
	Periods         *handler.PeriodHandler
	Entries         *handler.JournalEntryHandler
	Rates           *handler.RateHandler
	Revaluations    *handler.RevaluationHandler
	Reconciliations *handler.ReconciliationHandler
	System          *handler.SystemHandler
	Budgets         *handler.BudgetHandler
}

// RegisterLedgerRoutes wires the ledger API route groups into the router
func RegisterLedgerRoutes(r *Router, h LedgerHandlers) {
	accountRoutes := NewDomainGroup("accounts", "/accounts")
	accountRoutes.POST("", h.Accounts.CreateAccount)
	accountRoutes.GET("", h.Accounts.ListAccounts)
	accountRoutes.GET("/:id", h.Accounts.GetAccount)
	accountRoutes.POST("/:id/activate", h.Accounts.ActivateAccount)
	accountRoutes.POST("/:id/deactivate", h.Accounts.DeactivateAccount)

	periodRoutes := NewDomainGroup("periods", "/periods")
	periodRoutes.POST("", h.Periods.CreatePeriod)
	periodRoutes.GET("", h.Periods.ListPeriods)
	periodRoutes.GET("/by-date", h.Periods.GetPeriodByDate)
	periodRoutes.GET("/:id", h.Periods.GetPeriod)
	periodRoutes.POST("/:id/soft-close", h.Periods.SoftClosePeriod)
	periodRoutes.POST("/:id/reopen", h.Periods.ReopenPeriod)
	periodRoutes.POST("/:id/close", h.Periods.ClosePeriod)

	entryRoutes := NewDomainGroup("journal-entries", "/journal-entries")
	entryRoutes.POST("", h.Entries.PostEntry)
	entryRoutes.GET("", h.Entries.ListEntries)
	entryRoutes.GET("/:id", h.Entries.GetEntry)
	entryRoutes.POST("/:id/reverse", h.Entries.ReverseEntry)

	rateRoutes := NewDomainGroup("rates", "/rates")
	rateRoutes.PUT("", h.Rates.SaveRate)
	rateRoutes.PUT("/batch", h.Rates.SaveRates)
	rateRoutes.GET("", h.Rates.ListRates)
	rateRoutes.GET("/latest", h.Rates.GetLatestRate)

	revaluationRoutes := NewDomainGroup("revaluations", "/revaluations")
	revaluationRoutes.POST("", h.Revaluations.ComputeRevaluation)
	revaluationRoutes.GET("", h.Revaluations.ListAdjustments)
	revaluationRoutes.GET("/:id", h.Revaluations.GetAdjustment)
	revaluationRoutes.POST("/:id/approve", h.Revaluations.ApproveAdjustment)
	revaluationRoutes.POST("/:id/cancel", h.Revaluations.CancelAdjustment)
	revaluationRoutes.POST("/:id/journalize", h.Revaluations.JournalizeAdjustment)

	transactionRoutes := NewDomainGroup("bank-transactions", "/bank-transactions")
	transactionRoutes.POST("", h.Reconciliations.RecordTransaction)
	transactionRoutes.GET("", h.Reconciliations.ListTransactions)

	reconciliationRoutes := NewDomainGroup("reconciliations", "/reconciliations")
	reconciliationRoutes.POST("/statements/upload-url", h.Reconciliations.GenerateStatementUploadURL)
	reconciliationRoutes.POST("", h.Reconciliations.StartReconciliation)
	reconciliationRoutes.GET("", h.Reconciliations.ListReconciliations)
	reconciliationRoutes.GET("/:id", h.Reconciliations.GetReconciliation)
	reconciliationRoutes.POST("/:id/items/:itemID/accept", h.Reconciliations.AcceptAsAdjustment)
	reconciliationRoutes.POST("/:id/items/:itemID/approve", h.Reconciliations.ApproveAdjustmentItem)
	reconciliationRoutes.POST("/:id/complete", h.Reconciliations.CompleteReconciliation)
	reconciliationRoutes.POST("/:id/cancel", h.Reconciliations.CancelReconciliation)

	budgetRoutes := NewDomainGroup("budgets", "/budgets")
	budgetRoutes.POST("", h.Budgets.CreateBudget)
	budgetRoutes.GET("", h.Budgets.ListBudgets)
	budgetRoutes.GET("/:id", h.Budgets.GetBudget)
	budgetRoutes.POST("/:id/commitments", h.Budgets.CommitBudget)
	budgetRoutes.POST("/:id/commitments/:commitmentID/release", h.Budgets.ReleaseBudget)
	budgetRoutes.POST("/:id/consume", h.Budgets.ConsumeBudget)
	budgetRoutes.PUT("/:id/total", h.Budgets.ReviseBudget)
	budgetRoutes.PUT("/:id/thresholds", h.Budgets.SetBudgetThresholds)
	budgetRoutes.POST("/:id/close", h.Budgets.CloseBudget)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)
	systemRoutes.GET("/ping", h.System.Ping)

	r.Register(accountRoutes).
		Register(periodRoutes).
		Register(entryRoutes).
		Register(rateRoutes).
		Register(revaluationRoutes).
		Register(transactionRoutes).
		Register(reconciliationRoutes).
		Register(budgetRoutes).
		Register(systemRoutes)
}
