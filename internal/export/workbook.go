package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gcms/internal/pricing"
	"gcms/pkg/domain"
)

const (
	pricingSheet       = "Pricing"
	opportunitiesSheet = "Opportunities"
)

type sheetStyles struct {
	title, header, money int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	format := "#,##0.00"
	if st.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
		return st, err
	}
	return st, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		if err := f.SetCellValue(sheet, cell(i+1, row), v); err != nil {
			return err
		}
	}
	return nil
}

func headerRow(f *excelize.File, sheet string, row int, style int, labels ...string) error {
	for i, l := range labels {
		if err := f.SetCellValue(sheet, cell(i+1, row), l); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, cell(1, row), cell(len(labels), row), style)
}

func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// WritePricingWorkbook writes an xlsx with the labor and material lines of pc
// and the roll-up summary. title labels the sheet, typically the
// opportunity title.
func WritePricingWorkbook(w io.Writer, title string, pc domain.PricingCalculation) error {
	f, err := newWorkbook(pricingSheet)
	if err != nil {
		return fmt.Errorf("new workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("styles: %w", err)
	}
	s := pricingSheet
	if err := f.SetCellValue(s, "A1", "Pricing: "+title); err != nil {
		return err
	}
	_ = f.SetCellStyle(s, "A1", "A1", st.title)
	_ = f.SetColWidth(s, "A", "A", 28)
	_ = f.SetColWidth(s, "B", "D", 16)

	row := 3
	if err := headerRow(f, s, row, st.header, "Role", "Rate", "Hours", "Amount"); err != nil {
		return err
	}
	for _, l := range pc.LaborRates {
		row++
		if err := writeRow(f, s, row, l.Role, l.Rate, l.Hours, l.Rate*l.Hours); err != nil {
			return err
		}
		_ = f.SetCellStyle(s, cell(2, row), cell(2, row), st.money)
		_ = f.SetCellStyle(s, cell(4, row), cell(4, row), st.money)
	}

	row += 2
	if err := headerRow(f, s, row, st.header, "Item", "Unit Price", "Quantity", "Amount"); err != nil {
		return err
	}
	for _, m := range pc.Materials {
		row++
		if err := writeRow(f, s, row, m.Item, m.UnitPrice, m.Quantity, m.UnitPrice*m.Quantity); err != nil {
			return err
		}
		_ = f.SetCellStyle(s, cell(2, row), cell(2, row), st.money)
		_ = f.SetCellStyle(s, cell(4, row), cell(4, row), st.money)
	}

	b := pricing.Of(pc)
	row += 2
	if err := headerRow(f, s, row, st.header, "Summary", "Amount"); err != nil {
		return err
	}
	summary := []struct {
		label string
		value float64
	}{
		{"Total Labor", b.LaborTotal},
		{"Total Materials", b.MaterialsTotal},
		{"Direct Costs", b.Subtotal},
		{fmt.Sprintf("Overhead (%s%%)", Number(pc.Overhead)), b.OverheadAmount},
		{fmt.Sprintf("Profit (%s%%)", Number(pc.Profit)), b.ProfitAmount},
		{"Total Proposed Price", b.Total},
	}
	for _, line := range summary {
		row++
		if err := writeRow(f, s, row, line.label, line.value); err != nil {
			return err
		}
		_ = f.SetCellStyle(s, cell(2, row), cell(2, row), st.money)
	}
	return f.Write(w)
}

// WriteOpportunitiesWorkbook writes one row per opportunity.
func WriteOpportunitiesWorkbook(w io.Writer, opps []domain.Opportunity) error {
	f, err := newWorkbook(opportunitiesSheet)
	if err != nil {
		return fmt.Errorf("new workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("styles: %w", err)
	}
	s := opportunitiesSheet
	if err := headerRow(f, s, 1, st.header,
		"Notice ID", "Title", "Agency", "Status", "Posted", "Response Deadline", "NAICS", "Type", "Set Aside"); err != nil {
		return err
	}
	_ = f.SetColWidth(s, "A", "I", 20)
	for i, o := range opps {
		if err := writeRow(f, s, i+2, o.NoticeID, o.Title, o.Agency, string(o.Status), o.PostedDate,
			o.ResponseDeadline, o.NAICSCode, o.Type, o.SetAside); err != nil {
			return err
		}
	}
	return f.Write(w)
}
