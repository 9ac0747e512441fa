package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vasheegaran/ExpenseTrack/internal/services"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler serves expense downloads.
type ExportHandler struct {
	exportService services.ExportServicer
	auditService  services.AuditServicer
	now           func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.ExportServicer, auditService services.AuditServicer) *ExportHandler {
	return &ExportHandler{exportService: exportService, auditService: auditService, now: time.Now}
}

type exportWriter func(ctx context.Context, userID uint, w io.Writer) error

// ExportCSV downloads every expense as CSV.
// @Summary     Export CSV
// @Description Download all expenses of the authenticated user as expenses_<YYYY-MM-DD>.csv
// @Tags        export
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {file} file "CSV file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	h.export(c, "csv", csvContentType, h.exportService.WriteCSV)
}

// ExportXLSX downloads every expense as an Excel workbook.
// @Summary     Export XLSX
// @Description Download all expenses of the authenticated user as expenses_<YYYY-MM-DD>.xlsx
// @Tags        export
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Success     200 {file} file "XLSX file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/xlsx [get]
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	h.export(c, "xlsx", xlsxContentType, h.exportService.WriteXLSX)
}

// export renders into a buffer first so a failure can still produce a JSON error.
func (h *ExportHandler) export(c *gin.Context, ext, contentType string, write exportWriter) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := write(c.Request.Context(), userID, &buf); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditExport, "expense", 0, c.ClientIP(),
		map[string]interface{}{"format": ext})

	filename := fmt.Sprintf("expenses_%s.%s", h.now().Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
