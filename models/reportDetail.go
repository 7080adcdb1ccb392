package models

import (
	"context"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
)

// ReportDetail is the audit trail: one row per processed hire, carrying
// the compliance snapshot AFTER applying that hire. Rows are never edited
// once the run commits.
type ReportDetail struct {
	ID             int       `gorm:"primary_key" json:"id"`
	RunId          int       `gorm:"index;not null" json:"run_id"`
	EmployerId     int       `gorm:"index;not null" json:"employer_id"`
	ContractorId   int       `gorm:"index;not null" json:"contractor_id"`
	ContractorName string    `gorm:"size:255" json:"contractor_name"`
	MemberName     string    `gorm:"size:255" json:"member_name"`
	IANumber       string    `gorm:"size:50" json:"ia_number"`
	StartDate      time.Time `json:"start_date"`
	HireType       string    `gorm:"size:50" json:"hire_type"`
	ReviewedDate   time.Time `json:"reviewed_date"`

	Compliance       string    `gorm:"size:1;not null" json:"compliance"`
	DirectCount      int       `gorm:"not null" json:"direct_count"`
	DispatchNeeded   int       `gorm:"not null" json:"dispatch_needed"`
	NextHireDispatch string    `gorm:"size:1;not null" json:"next_hire_dispatch"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetReportDetailsByRunId(ctx context.Context, runId int) ([]*ReportDetail, error) {
	db := config.GetDB()
	var details []*ReportDetail
	err := db.WithContext(ctx).
		Where("run_id = ?", runId).
		Order("employer_id asc, contractor_id asc, start_date asc, reviewed_date asc, ia_number asc").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}
