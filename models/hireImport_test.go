package models

import (
	"testing"
)

func TestMapHireColumns(t *testing.T) {
	header := []string{
		"Employer_Id", "contractor_id", "Contractor_Name", "member_name",
		"IA_Number", "start_date", "hire_type", "Reviewed_Date",
	}
	colIndex, err := mapHireColumns(header)
	if err != nil {
		t.Fatalf("mapHireColumns: %v", err)
	}
	if colIndex["employer_id"] != 0 || colIndex["reviewed_date"] != 7 {
		t.Errorf("column mapping wrong: %+v", colIndex)
	}

	if _, err := mapHireColumns([]string{"employer_id", "contractor_id"}); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestParseHireRow(t *testing.T) {
	colIndex, err := mapHireColumns(hireImportColumns)
	if err != nil {
		t.Fatalf("mapHireColumns: %v", err)
	}

	record := []string{"1", "5", "Acme Wiring", "A. Mason", "100", "2025-06-02", "Direct", "06/02/2025"}
	hire, err := parseHireRow(record, colIndex)
	if err != nil {
		t.Fatalf("parseHireRow: %v", err)
	}
	if hire.EmployerId != 1 || hire.ContractorId != 5 || hire.IANumber != "100" {
		t.Errorf("parsed hire = %+v", *hire)
	}
	if hire.StartDate.Format("2006-01-02") != "2025-06-02" {
		t.Errorf("start date = %s", hire.StartDate)
	}
	if !hire.StartDate.Equal(hire.ReviewedDate) {
		t.Errorf("date formats disagree: start=%s reviewed=%s", hire.StartDate, hire.ReviewedDate)
	}
	// Hire type is stored verbatim; normalization happens at apply time.
	if hire.HireType != "Direct" {
		t.Errorf("hire type = %q", hire.HireType)
	}
}

func TestParseHireRow_RejectsBadRows(t *testing.T) {
	colIndex, _ := mapHireColumns(hireImportColumns)

	cases := map[string][]string{
		"bad employer id":   {"x", "5", "Acme", "A. Mason", "100", "2025-06-02", "direct", "2025-06-02"},
		"zero contractor":   {"1", "0", "Acme", "A. Mason", "100", "2025-06-02", "direct", "2025-06-02"},
		"missing member":    {"1", "5", "Acme", "", "100", "2025-06-02", "direct", "2025-06-02"},
		"bad start date":    {"1", "5", "Acme", "A. Mason", "100", "June 2", "direct", "2025-06-02"},
		"bad reviewed date": {"1", "5", "Acme", "A. Mason", "100", "2025-06-02", "direct", "soon"},
		"short row":         {"1", "5"},
	}
	for name, record := range cases {
		if _, err := parseHireRow(record, colIndex); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
