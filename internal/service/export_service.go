package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/ledger"
	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/pkg/export"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

// Supported balance export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

type ledgerReader interface {
	Balances(ctx context.Context) ([]models.LedgerRow, error)
	Statement(ctx context.Context, studentID string) (*models.Statement, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	SchoolName string
	Currency   string
}

// ExportFile is a rendered document ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders balance sheets and student statements.
type ExportService struct {
	ledger ledgerReader
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   xlsxRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

var balanceHeaders = []string{"Reg Number", "Student", "Grade", "Amount Due", "Amount Paid", "Balance", "Status", "Last Payment"}

// NewExportService constructs an ExportService.
func NewExportService(reader ledgerReader, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "GHS"
	}
	return &ExportService{
		ledger: reader,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		xlsx:   export.NewXLSXExporter(),
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Balances renders every enrolled student's balance in the requested format.
func (s *ExportService) Balances(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	switch format {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatXLSX:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}

	rows, err := s.ledger.Balances(ctx)
	if err != nil {
		return nil, err
	}
	dataset := balanceDataset(rows)
	generatedAt := s.now().UTC()
	filename := fmt.Sprintf("fee_balances_%s.%s", generatedAt.Format("20060102_150405"), format)

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		summary := ledger.Summarize(rows, s.cfg.Currency, generatedAt)
		payload, err = s.pdf.RenderDocument(export.Document{
			Organisation: s.cfg.SchoolName,
			Title:        "Student Fee Balances",
			Subtitle:     []string{"Generated: " + generatedAt.Format("02 Jan 2006 15:04 MST")},
			Table:        dataset,
			Footer: []string{
				fmt.Sprintf("Total expected: %s %s", s.cfg.Currency, summary.TotalExpected.StringFixed(2)),
				fmt.Sprintf("Total collected: %s %s", s.cfg.Currency, summary.TotalCollected.StringFixed(2)),
				fmt.Sprintf("Total outstanding: %s %s", s.cfg.Currency, summary.TotalOutstanding.StringFixed(2)),
			},
		})
		contentType = "application/pdf"
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, "Balances")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		s.logger.Error("render balance export", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("balance export generated", zap.String("format", format), zap.Int("students", len(rows)))
	return &ExportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

// StatementPDF renders the printable statement for one student.
func (s *ExportService) StatementPDF(ctx context.Context, studentID string) (*ExportFile, error) {
	statement, err := s.ledger.Statement(ctx, studentID)
	if err != nil {
		return nil, err
	}

	table := export.Dataset{Headers: []string{"Date", "Description", "Reference", "Debit", "Credit", "Balance"}}
	for _, line := range statement.Lines {
		date := ""
		if line.Date != nil {
			date = line.Date.Format("2006-01-02")
		}
		table.Rows = append(table.Rows, map[string]string{
			"Date":        date,
			"Description": line.Description,
			"Reference":   line.Reference,
			"Debit":       amountCell(line.Debit.IsZero(), line.Debit.StringFixed(2)),
			"Credit":      amountCell(line.Credit.IsZero(), line.Credit.StringFixed(2)),
			"Balance":     line.Balance.StringFixed(2),
		})
	}

	student := statement.Student
	payload, err := s.pdf.RenderDocument(export.Document{
		Organisation: s.cfg.SchoolName,
		Title:        "Fee Statement",
		Subtitle: []string{
			"Student: " + student.FullName(),
			"Reg Number: " + student.RegNumber,
			"Grade: " + student.GradeLevel,
			"Date: " + statement.GeneratedAt.Format("02 Jan 2006"),
		},
		Table:  table,
		Footer: []string{fmt.Sprintf("Net outstanding: %s %s", statement.Currency, statement.Outstanding.StringFixed(2))},
	})
	if err != nil {
		s.logger.Error("render statement", zap.String("student_id", studentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("statement_%s.pdf", sanitizeFilename(student.RegNumber)),
		ContentType: "application/pdf",
		Payload:     payload,
	}, nil
}

func balanceDataset(rows []models.LedgerRow) export.Dataset {
	dataset := export.Dataset{Headers: balanceHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		last := ""
		if row.Record.LastPaymentDate != nil {
			last = row.Record.LastPaymentDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Reg Number":   row.Student.RegNumber,
			"Student":      row.Student.FullName(),
			"Grade":        row.Student.GradeLevel,
			"Amount Due":   row.Record.AmountDue.StringFixed(2),
			"Amount Paid":  row.Record.AmountPaid.StringFixed(2),
			"Balance":      row.Balance.StringFixed(2),
			"Status":       string(row.Record.Status),
			"Last Payment": last,
		})
	}
	return dataset
}

func amountCell(zero bool, value string) string {
	if zero {
		return ""
	}
	return value
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
