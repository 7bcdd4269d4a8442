package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	app "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	csvimport "github.com/erp/ledger/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ensure S3StatementImporter satisfies the application contract
var _ app.StatementImporter = (*S3StatementImporter)(nil)

// statementHeaders are the columns a statement file must carry.
// Counterparty and description are optional.
var statementHeaders = []string{"date", "amount", "reference"}

// statementDateFormats are tried in order when parsing the date column
var statementDateFormats = []string{"2006-01-02", "02.01.2006", "02/01/2006"}

// S3StatementImporter fetches uploaded bank statement files from object
// storage and parses them into statement lines for reconciliation.
// Statement files are CSV with a header row.
type S3StatementImporter struct {
	downloader ObjectDownloader
	logger     *zap.Logger
}

// NewS3StatementImporter creates a statement importer backed by object storage
func NewS3StatementImporter(downloader ObjectDownloader, logger *zap.Logger) *S3StatementImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3StatementImporter{
		downloader: downloader,
		logger:     logger,
	}
}

// StatementObjectKey returns the storage key a tenant's statement file is
// kept under. Upload URL generation and import use the same layout.
func StatementObjectKey(tenantID uuid.UUID, key string) string {
	return fmt.Sprintf("statements/%s/%s", tenantID, key)
}

// Import downloads the statement stored under the given key and parses it
func (i *S3StatementImporter) Import(ctx context.Context, tenantID uuid.UUID, key string) ([]ledger.StatementLine, error) {
	objectKey := StatementObjectKey(tenantID, key)

	data, err := i.downloader.Download(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statement %s: %w", key, err)
	}

	lines, err := parseStatement(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement %s: %w", key, err)
	}

	i.logger.Info("statement imported",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", key),
		zap.Int("lines", len(lines)),
	)

	return lines, nil
}

// parseStatement parses CSV statement content into statement lines
func parseStatement(data []byte) ([]ledger.StatementLine, error) {
	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		return nil, err
	}

	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(statementHeaders); len(missing) > 0 {
		return nil, fmt.Errorf("statement file missing columns: %s", strings.Join(missing, ", "))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, csvimport.ErrNoDataRows
	}

	lines := make([]ledger.StatementLine, 0, len(rows))
	rowErrs := csvimport.NewErrorCollection(maxStatementErrors)
	for _, row := range rows {
		line, ok := parseStatementRow(row, rowErrs)
		if ok {
			lines = append(lines, line)
		}
	}
	if rowErrs.HasErrors() {
		return nil, fmt.Errorf("statement has invalid rows: %s", rowErrs.String())
	}

	return lines, nil
}

// maxStatementErrors caps how many row errors a single import reports
const maxStatementErrors = 20

func parseStatementRow(row *csvimport.Row, errs *csvimport.ErrorCollection) (ledger.StatementLine, bool) {
	lineDate, err := parseStatementDate(row.Get("date"))
	if err != nil {
		errs.AddFormatError(row.LineNumber, "date", statementDateFormats[0], row.Get("date"))
		return ledger.StatementLine{}, false
	}

	amount, err := decimal.NewFromString(row.Get("amount"))
	if err != nil {
		errs.AddFormatError(row.LineNumber, "amount", "decimal number", row.Get("amount"))
		return ledger.StatementLine{}, false
	}

	reference := row.Get("reference")
	if reference == "" {
		errs.AddRequiredError(row.LineNumber, "reference")
		return ledger.StatementLine{}, false
	}

	return ledger.StatementLine{
		ID:           uuid.New(),
		LineDate:     lineDate,
		Amount:       amount,
		Reference:    reference,
		Counterparty: row.Get("counterparty"),
		Description:  row.Get("description"),
	}, true
}

func parseStatementDate(value string) (time.Time, error) {
	for _, format := range statementDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
