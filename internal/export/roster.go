// Package export writes spreadsheet reports for HR.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

const rosterSheet = "Candidates"

var rosterColumns = []struct {
	title string
	width float64
}{
	{"ID", 8},
	{"First Name", 18},
	{"Last Name", 18},
	{"Email", 32},
	{"Position", 24},
	{"Department", 20},
	{"Status", 12},
	{"Progress (%)", 14},
	{"Start Date", 14},
	{"Created", 20},
}

// WriteRoster writes the candidate roster as an xlsx workbook.
func WriteRoster(w io.Writer, candidates []portalmodel.Candidate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	for i, col := range rosterColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(rosterSheet, cell, col.title); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(rosterSheet, name, name, col.width); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(rosterColumns), 1)
	if err := f.SetCellStyle(rosterSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, c := range candidates {
		row := i + 2
		values := []any{c.ID, c.FirstName, c.LastName, c.Email, c.Position, c.Department, string(c.Status), c.Progress, "", c.CreatedAt}
		if c.StartDate != nil {
			values[8] = *c.StartDate
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(rosterSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
		startCell, _ := excelize.CoordinatesToCellName(9, row)
		if err := f.SetCellStyle(rosterSheet, startCell, startCell, dateStyle); err != nil {
			return err
		}
	}

	if err := f.SetPanes(rosterSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	if len(candidates) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(rosterColumns), len(candidates)+1)
		if err := f.AutoFilter(rosterSheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
