package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

type stubLedgerReader struct {
	rows      []models.LedgerRow
	statement *models.Statement
	err       error
}

func (s *stubLedgerReader) Balances(ctx context.Context) ([]models.LedgerRow, error) {
	return s.rows, s.err
}

func (s *stubLedgerReader) Statement(ctx context.Context, studentID string) (*models.Statement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.statement, nil
}

func sampleLedgerRows() []models.LedgerRow {
	paid := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	record := models.FeeRecord{
		StudentID:       "s1",
		AmountDue:       decimal.NewFromInt(1500),
		AmountPaid:      decimal.NewFromInt(500),
		LastPaymentDate: &paid,
		Status:          models.FeeStatusPartial,
	}
	return []models.LedgerRow{{
		Student: models.Student{ID: "s1", RegNumber: "REG-001", FirstName: "Ama", LastName: "Mensah", GradeLevel: "Class 1"},
		Record:  record,
		Balance: record.Balance(),
	}}
}

func TestExportServiceBalancesCSV(t *testing.T) {
	svc := NewExportService(&stubLedgerReader{rows: sampleLedgerRows()}, ExportConfig{SchoolName: "Test School"}, nil)
	svc.now = func() time.Time { return time.Date(2024, 9, 3, 10, 0, 0, 0, time.UTC) }

	file, err := svc.Balances(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "fee_balances_20240903_100000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Reg Number,Student,Grade,Amount Due,Amount Paid,Balance,Status,Last Payment", lines[0])
	assert.Equal(t, "REG-001,Ama Mensah,Class 1,1500.00,500.00,1000.00,partial,2024-09-02", lines[1])
}

func TestExportServiceBalancesPDFAndXLSX(t *testing.T) {
	svc := NewExportService(&stubLedgerReader{rows: sampleLedgerRows()}, ExportConfig{SchoolName: "Test School"}, nil)

	pdf, err := svc.Balances(context.Background(), "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))

	xlsx, err := svc.Balances(context.Background(), "xlsx")
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(xlsx.Payload))
	require.NoError(t, err)
	defer book.Close()
	v, err := book.GetCellValue("Balances", "F2")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", v)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&stubLedgerReader{}, ExportConfig{}, nil)
	_, err := svc.Balances(context.Background(), "docx")
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportServiceStatementPDF(t *testing.T) {
	row := sampleLedgerRows()[0]
	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	statement := &models.Statement{
		Student: row.Student,
		Record:  row.Record,
		Lines: []models.StatementLine{
			{Description: "School fees bill", Debit: decimal.NewFromInt(1500), Balance: decimal.NewFromInt(1500)},
			{Date: &date, Description: "School fees payment", Reference: "Cash", Credit: decimal.NewFromInt(500), Balance: decimal.NewFromInt(1000)},
		},
		Outstanding: decimal.NewFromInt(1000),
		Currency:    "GHS",
		GeneratedAt: date,
	}
	svc := NewExportService(&stubLedgerReader{statement: statement}, ExportConfig{SchoolName: "Test School"}, nil)

	file, err := svc.StatementPDF(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "statement_REG-001.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))

	failing := NewExportService(&stubLedgerReader{err: appErrors.Clone(appErrors.ErrRecordNotFound, "none")}, ExportConfig{}, nil)
	_, err = failing.StatementPDF(context.Background(), "s1")
	assertCode(t, err, appErrors.ErrRecordNotFound.Code)
}
