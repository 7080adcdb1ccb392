package models

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"github.com/xuri/excelize/v2"
)

const hireImportBatchSize = 200

// HireImportResult summarizes one upload: how many rows landed and what
// was skipped. A bad row never aborts the batch; the engine is equally
// permissive with dirty hire types downstream.
type HireImportResult struct {
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	RowErrors []string `json:"row_errors"`
}

var hireImportColumns = []string{
	"employer_id", "contractor_id", "contractor_name", "member_name",
	"ia_number", "start_date", "hire_type", "reviewed_date",
}

// ImportHiresCSV parses an uploaded hire CSV (header row required) and
// bulk-inserts the valid rows.
func ImportHiresCSV(ctx context.Context, r io.Reader) (*HireImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	colIndex, err := mapHireColumns(header)
	if err != nil {
		return nil, err
	}

	result := &HireImportResult{}
	var batch []*RawHire
	rowNo := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNo++
		if err != nil {
			result.skip(rowNo, err)
			continue
		}
		hire, err := parseHireRow(record, colIndex)
		if err != nil {
			result.skip(rowNo, err)
			continue
		}
		batch = append(batch, hire)
		if len(batch) >= hireImportBatchSize {
			if err := insertHireBatch(ctx, batch); err != nil {
				return nil, err
			}
			result.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := insertHireBatch(ctx, batch); err != nil {
			return nil, err
		}
		result.Imported += len(batch)
	}
	return result, nil
}

// ImportHiresXLSX parses the first sheet of an uploaded workbook with the
// same column layout as the CSV import.
func ImportHiresXLSX(ctx context.Context, r io.Reader) (*HireImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("workbook sheet is empty")
	}
	colIndex, err := mapHireColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &HireImportResult{}
	var batch []*RawHire
	for i, record := range rows[1:] {
		rowNo := i + 2
		hire, err := parseHireRow(record, colIndex)
		if err != nil {
			result.skip(rowNo, err)
			continue
		}
		batch = append(batch, hire)
		if len(batch) >= hireImportBatchSize {
			if err := insertHireBatch(ctx, batch); err != nil {
				return nil, err
			}
			result.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := insertHireBatch(ctx, batch); err != nil {
			return nil, err
		}
		result.Imported += len(batch)
	}
	return result, nil
}

func (r *HireImportResult) skip(rowNo int, err error) {
	r.Skipped++
	r.RowErrors = append(r.RowErrors, fmt.Sprintf("row %d: %v", rowNo, err))
}

func mapHireColumns(header []string) (map[string]int, error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range hireImportColumns {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return colIndex, nil
}

func parseHireRow(record []string, colIndex map[string]int) (*RawHire, error) {
	cell := func(name string) string {
		idx := colIndex[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	employerId, err := strconv.Atoi(cell("employer_id"))
	if err != nil || employerId <= 0 {
		return nil, errors.New("invalid employer_id")
	}
	contractorId, err := strconv.Atoi(cell("contractor_id"))
	if err != nil || contractorId <= 0 {
		return nil, errors.New("invalid contractor_id")
	}
	memberName := cell("member_name")
	if memberName == "" {
		return nil, errors.New("member_name is required")
	}
	startDate, err := utils.ParseDateInput(cell("start_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %v", err)
	}
	reviewedDate, err := utils.ParseDateInput(cell("reviewed_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid reviewed_date: %v", err)
	}

	// Hire type is stored as-is; normalization happens at apply time so
	// the audit trail keeps what the upload said.
	return &RawHire{
		EmployerId:     employerId,
		ContractorId:   contractorId,
		ContractorName: cell("contractor_name"),
		MemberName:     memberName,
		IANumber:       cell("ia_number"),
		StartDate:      startDate,
		HireType:       cell("hire_type"),
		ReviewedDate:   reviewedDate,
	}, nil
}

func insertHireBatch(ctx context.Context, batch []*RawHire) error {
	db := config.GetDB()
	logger := config.GetLogger()
	return utils.ExecuteWithRetry(logger, "hire import batch insert", 3, func() error {
		return db.WithContext(ctx).Create(&batch).Error
	})
}
