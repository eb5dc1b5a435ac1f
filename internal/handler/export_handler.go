package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ledger-api/internal/service"
	"github.com/noah-isme/school-ledger-api/pkg/response"
)

type exportService interface {
	Balances(ctx context.Context, format string) (*service.ExportFile, error)
	StatementPDF(ctx context.Context, studentID string) (*service.ExportFile, error)
}

// ExportHandler streams rendered fee documents.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Balances godoc
// @Summary Export student balances
// @Tags Fees
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /fees/export [get]
func (h *ExportHandler) Balances(c *gin.Context) {
	file, err := h.exports.Balances(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// StatementPDF godoc
// @Summary Printable fee statement
// @Tags Fees
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /fees/records/{studentId}/statement.pdf [get]
func (h *ExportHandler) StatementPDF(c *gin.Context) {
	file, err := h.exports.StatementPDF(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
