package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
)

// ExportDateLayout is how expense dates appear in exported files.
const ExportDateLayout = "2006-01-02 15:04:05"

// ExportSheet is the worksheet name of XLSX exports.
const ExportSheet = "Expenses"

var exportHeader = []string{"Date", "Category", "Amount", "Description"}

// exportService writes a user's ledger to downloadable files.
type exportService struct {
	expenses ExpenseServicer
}

// NewExportService creates a new ExportServicer reading from the given ledger.
func NewExportService(expenses ExpenseServicer) ExportServicer {
	return &exportService{expenses: expenses}
}

// WriteCSV writes a header row and one row per expense, newest first.
func (s *exportService) WriteCSV(ctx context.Context, userID uint, w io.Writer) error {
	expenses, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range expenses {
		if err := writer.Write(exportRow(&expenses[i])); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// WriteXLSX writes the same rows as WriteCSV into a single-sheet workbook.
// Amounts are stored as numbers so spreadsheets can total them.
func (s *exportService) WriteXLSX(ctx context.Context, userID uint, w io.Writer) error {
	expenses, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Get().Warnw("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range expenses {
		e := &expenses[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		row := []interface{}{
			e.Date.UTC().Format(ExportDateLayout),
			string(e.Category),
			e.Amount.InexactFloat64(),
			e.Description,
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if len(expenses) > 0 {
		last := fmt.Sprintf("C%d", len(expenses)+1)
		if err := f.SetCellStyle(ExportSheet, "C2", last, amountStyle); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	_ = f.SetColWidth(ExportSheet, "A", "A", 20)
	_ = f.SetColWidth(ExportSheet, "B", "B", 15)
	_ = f.SetColWidth(ExportSheet, "C", "C", 12)
	_ = f.SetColWidth(ExportSheet, "D", "D", 40)

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func exportRow(e *models.Expense) []string {
	return []string{
		e.Date.UTC().Format(ExportDateLayout),
		string(e.Category),
		e.Amount.StringFixed(amountPlaces),
		e.Description,
	}
}
