package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/compliance"
	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"gorm.io/gorm"
)

// Report is the final compliance snapshot for one contractor at the end
// of one run. Created transactionally by the run executor; afterwards a
// reviewer may edit the status and counters, which appends a Note.
type Report struct {
	ID             int    `gorm:"primary_key" json:"id"`
	RunId          int    `gorm:"not null;uniqueIndex:idx_report_run_contractor,priority:1" json:"run_id"`
	EmployerId     int    `gorm:"not null;uniqueIndex:idx_report_run_contractor,priority:2" json:"employer_id"`
	ContractorId   int    `gorm:"not null;uniqueIndex:idx_report_run_contractor,priority:3" json:"contractor_id"`
	ContractorName string `gorm:"size:255" json:"contractor_name"`

	Compliance       string    `gorm:"size:1;not null" json:"compliance"`
	DirectCount      int       `gorm:"not null" json:"direct_count"`
	DispatchNeeded   int       `gorm:"not null" json:"dispatch_needed"`
	NextHireDispatch string    `gorm:"size:1;not null" json:"next_hire_dispatch"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Status is the display form of the stored compliance code.
func (r *Report) Status() string {
	return compliance.CodeToStatus(compliance.Code(r.Compliance))
}

func GetReportById(ctx context.Context, id int) (*Report, error) {
	db := config.GetDB()
	var report Report
	err := db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

func GetReportsByRunId(ctx context.Context, runId int) ([]*Report, error) {
	db := config.GetDB()
	var reports []*Report
	err := db.WithContext(ctx).
		Where("run_id = ?", runId).
		Order("employer_id asc, contractor_id asc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// GetPriorReport looks up one contractor's report row from the seed run.
// A nil return with nil error means the contractor is new this period.
func GetPriorReport(tx *gorm.DB, ctx context.Context, runId int, employerId int, contractorId int) (*Report, error) {
	var report Report
	err := tx.WithContext(ctx).
		Where("run_id = ? AND employer_id = ? AND contractor_id = ?", runId, employerId, contractorId).
		First(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// ReportReviewInput is a reviewer's manual correction of a report row.
// The dispatch flag is not accepted from the caller: it is derived from
// the edited counters, same as during a run.
type ReportReviewInput struct {
	Status         string `json:"status" binding:"required"`
	DirectCount    *int   `json:"direct_count" binding:"required"`
	DispatchNeeded *int   `json:"dispatch_needed" binding:"required"`
	Comment        string `json:"comment" binding:"required"`
}

// UpdateReportReview applies a reviewer edit to a report and appends the
// mandatory audit note, atomically. ReportDetail rows are never touched.
func UpdateReportReview(ctx context.Context, reportId int, input *ReportReviewInput) (*Report, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		return nil, errors.New("user name is required")
	}
	if input.DirectCount == nil || *input.DirectCount < 0 {
		return nil, errors.New("direct count must be zero or positive")
	}
	if input.DispatchNeeded == nil || *input.DispatchNeeded < 0 {
		return nil, errors.New("dispatch needed must be zero or positive")
	}

	report, err := GetReportById(ctx, reportId)
	if err != nil {
		return nil, err
	}

	run, err := GetRunById(ctx, report.RunId)
	if err != nil {
		return nil, err
	}
	mode, err := GetModeById(db, ctx, run.ModeId)
	if err != nil {
		return nil, err
	}

	state := compliance.NewState(&compliance.Seed{
		Status:         input.Status,
		DirectCount:    *input.DirectCount,
		DispatchNeeded: *input.DispatchNeeded,
	}, mode.AllowedDirect)

	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"compliance":         string(state.Compliance),
			"direct_count":       state.DirectCount,
			"dispatch_needed":    state.DispatchNeeded,
			"next_hire_dispatch": string(state.NextHireDispatch),
		}
		if err := tx.WithContext(ctx).Model(&Report{}).Where("id = ?", reportId).Updates(updates).Error; err != nil {
			return err
		}
		note := Note{
			Description:   input.Comment,
			ReferenceID:   reportId,
			ReferenceType: NoteReferenceTypeReport,
			UserId:        userId,
			UserName:      userName,
		}
		if err := tx.WithContext(ctx).Create(&note).Error; err != nil {
			return err
		}
		logLine := fmt.Sprintf("report %d (employer %d, contractor %d) reviewed by %s",
			reportId, report.EmployerId, report.ContractorId, userName)
		return AppendRunOutputLog(tx, ctx, run.ID, logLine)
	})
	if err != nil {
		return nil, err
	}

	return GetReportById(ctx, reportId)
}

// GetReportedContractors lists the employer/contractor pairs that
// received a report row in the given run.
func GetReportedContractors(tx *gorm.DB, ctx context.Context, runId int) ([]*ContractorKey, error) {
	sql := `
SELECT
	employer_id,
	contractor_id,
	contractor_name
FROM
	reports
WHERE
	run_id = ?
`
	var keys []*ContractorKey
	if err := tx.WithContext(ctx).Raw(sql, runId).Scan(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
