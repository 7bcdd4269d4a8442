package telemetry

// Ledger operation names used for profiling labels.
const (
	OperationPostEntry    = "post_entry"
	OperationReverseEntry = "reverse_entry"
	OperationClosePeriod  = "close_period"
	OperationRevalue      = "revalue"
	OperationReconcile    = "reconcile"
	OperationBudgetCheck  = "budget_check"
)

// Ledger span attribute keys
const (
	SpanAttrEntryNumber      = "entry_number"
	SpanAttrEntryDate        = "entry_date"
	SpanAttrPeriodID         = "period_id"
	SpanAttrPeriodName       = "period_name"
	SpanAttrAccountID        = "account_id"
	SpanAttrAccountCode      = "account_code"
	SpanAttrAdjustmentNumber = "adjustment_number"
	SpanAttrValuationDate    = "valuation_date"
	SpanAttrBankAccountID    = "bank_account_id"
	SpanAttrReconciliationNo = "reconciliation_number"
	SpanAttrBudgetID         = "budget_id"
	SpanAttrCurrency         = "currency"
	SpanAttrLineCount        = "line_count"
)

// LedgerOperationLabels creates profiling labels for a ledger operation.
// The subtype further qualifies the operation (e.g. the entry source type).
func LedgerOperationLabels(operation, subtype string) map[string]string {
	labels := map[string]string{
		ProfilingLabelOperation: operation,
	}
	if subtype != "" {
		labels["subtype"] = subtype
	}
	return labels
}
