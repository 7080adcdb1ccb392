package reports

import (
	"context"
	"fmt"

	"github.com/dragontuck/unionhall-compliance-sub001/models"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet = "Reports"
	detailSheet = "Details"
)

// BuildRunWorkbook renders a committed run as an Excel workbook: one
// sheet with the per-contractor reports, one with the per-hire audit
// trail. The caller streams it as an attachment.
func BuildRunWorkbook(ctx context.Context, runId int) (*excelize.File, error) {
	reportRows, err := models.GetReportsByRunId(ctx, runId)
	if err != nil {
		return nil, err
	}
	detailRows, err := models.GetReportDetailsByRunId(ctx, runId)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", reportSheet)
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, err
	}

	reportHeadings := []string{
		"EmployerId", "ContractorId", "ContractorName", "Status",
		"DirectCount", "DispatchNeeded", "NextHireDispatch",
	}
	if err := writeHeadings(f, reportSheet, reportHeadings); err != nil {
		return nil, err
	}
	for i, r := range reportRows {
		row := i + 2
		f.SetCellValue(reportSheet, cell('A', row), r.EmployerId)
		f.SetCellValue(reportSheet, cell('B', row), r.ContractorId)
		f.SetCellValue(reportSheet, cell('C', row), r.ContractorName)
		f.SetCellValue(reportSheet, cell('D', row), r.Status())
		f.SetCellValue(reportSheet, cell('E', row), r.DirectCount)
		f.SetCellValue(reportSheet, cell('F', row), r.DispatchNeeded)
		f.SetCellValue(reportSheet, cell('G', row), r.NextHireDispatch)
	}

	detailHeadings := []string{
		"EmployerId", "ContractorId", "ContractorName", "MemberName",
		"IANumber", "StartDate", "HireType", "ReviewedDate",
		"Compliance", "DirectCount", "DispatchNeeded", "NextHireDispatch",
	}
	if err := writeHeadings(f, detailSheet, detailHeadings); err != nil {
		return nil, err
	}
	for i, d := range detailRows {
		row := i + 2
		f.SetCellValue(detailSheet, cell('A', row), d.EmployerId)
		f.SetCellValue(detailSheet, cell('B', row), d.ContractorId)
		f.SetCellValue(detailSheet, cell('C', row), d.ContractorName)
		f.SetCellValue(detailSheet, cell('D', row), d.MemberName)
		f.SetCellValue(detailSheet, cell('E', row), d.IANumber)
		f.SetCellValue(detailSheet, cell('F', row), d.StartDate.Format("2006-01-02"))
		f.SetCellValue(detailSheet, cell('G', row), d.HireType)
		f.SetCellValue(detailSheet, cell('H', row), d.ReviewedDate.Format("2006-01-02"))
		f.SetCellValue(detailSheet, cell('I', row), d.Compliance)
		f.SetCellValue(detailSheet, cell('J', row), d.DirectCount)
		f.SetCellValue(detailSheet, cell('K', row), d.DispatchNeeded)
		f.SetCellValue(detailSheet, cell('L', row), d.NextHireDispatch)
	}

	return f, nil
}

func writeHeadings(f *excelize.File, sheet string, headings []string) error {
	col := 'A'
	for _, h := range headings {
		if err := f.SetCellValue(sheet, cell(col, 1), h); err != nil {
			return err
		}
		col++
	}
	return nil
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}
