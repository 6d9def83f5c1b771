package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// bytes: one sheet of invoices, one sheet of their line items.
type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInvoicesXLSX returns a workbook with every canonical invoice and its
// line items.
func (s *Service) ExportInvoicesXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	invoices, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const invoiceSheet = "Invoices"
	const itemSheet = "Line Items"

	if err := ensureSheet(f, invoiceSheet); err != nil {
		return nil, err
	}
	if err := ensureSheet(f, itemSheet); err != nil {
		return nil, err
	}
	if index, err := f.GetSheetIndex(invoiceSheet); err == nil {
		f.SetActiveSheet(index)
	}

	invoiceHeaders := []string{
		"Invoice Number",
		"Vendor",
		"Invoice Date",
		"Total Amount",
		"Method",
		"Confidence",
		"Validated",
		"Source Path",
		"Updated At",
	}
	for i, h := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(invoiceSheet, cell, h)
	}

	itemHeaders := []string{
		"Invoice Number",
		"Vendor",
		"Order",
		"Description",
		"Quantity",
		"Unit Price",
		"Line Total",
	}
	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemSheet, cell, h)
	}

	itemRow := 2
	totalItems := 0
	for i, inv := range invoices {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(invoiceSheet, cell, v)
		}
		write(1, inv.InvoiceNumber)
		write(2, inv.VendorName)
		write(3, inv.InvoiceDate)
		write(4, inv.TotalAmount)
		write(5, string(inv.ExtractionMethod))
		write(6, fmt.Sprintf("%.2f", inv.ConfidenceScore))
		write(7, inv.Validated)
		write(8, inv.SourcePath)
		if !inv.UpdatedAt.IsZero() {
			write(9, inv.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
		}

		items, err := s.repo.GetLineItems(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("query line items for invoice %d: %w", inv.ID, err)
		}
		for _, it := range items {
			writeItem := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, itemRow)
				_ = f.SetCellValue(itemSheet, cell, v)
			}
			writeItem(1, inv.InvoiceNumber)
			writeItem(2, inv.VendorName)
			writeItem(3, it.Order)
			writeItem(4, truncate(it.Description, 140))
			writeItem(5, it.Quantity)
			writeItem(6, it.UnitPrice)
			writeItem(7, it.LineTotal)
			itemRow++
			totalItems++
		}
	}

	_ = f.SetColWidth(invoiceSheet, "A", "A", 16)
	_ = f.SetColWidth(invoiceSheet, "B", "B", 30)
	_ = f.SetColWidth(invoiceSheet, "C", "C", 12)
	_ = f.SetColWidth(invoiceSheet, "D", "D", 14)
	_ = f.SetColWidth(invoiceSheet, "H", "H", 60)
	_ = f.SetColWidth(itemSheet, "D", "D", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"invoices", len(invoices),
		"line_items", totalItems,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func ensureSheet(f *excelize.File, name string) error {
	if index, _ := f.GetSheetIndex(name); index == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
