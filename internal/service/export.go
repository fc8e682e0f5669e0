package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/jask/debtboard/internal/debt"
)

const debtorSheet = "Debtors"

// ExportService writes debtor lists to spreadsheets.
type ExportService struct {
	// Dir is where exports land when a relative name is given.
	Dir string
}

// Debtors writes debtors to an xlsx file at name and returns the full path.
// Debt cells are numeric so the sheet can be summed; malformed debts are 0.
func (s *ExportService) Debtors(name string, debtors []debt.Customer, currency string) (string, error) {
	path := name
	if !filepath.IsAbs(path) && s.Dir != "" {
		path = filepath.Join(s.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", debtorSheet); err != nil {
		return "", fmt.Errorf("export sheet: %w", err)
	}

	header := []any{"Name", "ID", "Debt", "Currency", "Created"}
	if err := f.SetSheetRow(debtorSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("export header: %w", err)
	}
	for i, c := range debtors {
		created := ""
		if c.CreatedAt != nil {
			created = *c.CreatedAt
		}
		amount, _ := debt.ParseOptional(c.TotalDebt).Round(2).Float64()
		row := []any{c.Name, c.ID, amount, currency, created}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(debtorSheet, cell, &row); err != nil {
			return "", fmt.Errorf("export row %d: %w", i+1, err)
		}
	}

	summary := debt.Summarize(debtors)
	total, _ := summary.Total.Round(2).Float64()
	totalRow := []any{fmt.Sprintf("Total (%d)", summary.Count), "", total, currency, ""}
	cell, err := excelize.CoordinatesToCellName(1, len(debtors)+2)
	if err != nil {
		return "", err
	}
	if err := f.SetSheetRow(debtorSheet, cell, &totalRow); err != nil {
		return "", fmt.Errorf("export total: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("export save: %w", err)
	}
	return path, nil
}
