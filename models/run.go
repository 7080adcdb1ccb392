package models

import (
	"context"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"gorm.io/gorm"
)

// Run is one execution instance of the compliance review. Immutable after
// creation except for the textual output log.
type Run struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ModeId        int       `gorm:"index;not null" json:"mode_id"`
	ReviewedDate  time.Time `gorm:"index;not null" json:"reviewed_date"`
	ReportingDate time.Time `gorm:"not null" json:"reporting_date"`
	RunNumber     int       `gorm:"not null" json:"run_number"`
	OutputLog     string    `gorm:"type:text" json:"output_log"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetRunById(ctx context.Context, id int) (*Run, error) {
	db := config.GetDB()
	var run Run
	err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}

func ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	db := config.GetDB()
	if limit <= 0 {
		limit = 100
	}
	var runs []*Run
	err := db.WithContext(ctx).
		Order("reviewed_date desc, run_number desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// GetPreviousRun finds the most recent run whose reviewed date precedes
// the given one, regardless of mode. It seeds contractor states for the
// new run; nil means every contractor starts from defaults.
func GetPreviousRun(tx *gorm.DB, ctx context.Context, reviewedDate time.Time) (*Run, error) {
	var run Run
	err := tx.WithContext(ctx).
		Where("reviewed_date < ?", reviewedDate).
		Order("reviewed_date desc, run_number desc, id desc").
		First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// NextRunNumber derives the next sequential run number within
// (mode, reviewed date). Concurrent runs targeting the same reviewed date
// race on this; at most one in-flight run per combination is assumed.
func NextRunNumber(tx *gorm.DB, ctx context.Context, modeId int, reviewedDate time.Time) (int, error) {
	var maxNumber int
	err := tx.WithContext(ctx).Model(&Run{}).
		Where("mode_id = ? AND reviewed_date = ?", modeId, reviewedDate).
		Select("COALESCE(MAX(run_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, err
	}
	return maxNumber + 1, nil
}

// AppendRunOutputLog appends a line to the run's free-text output log,
// the one mutable field on a committed run.
func AppendRunOutputLog(tx *gorm.DB, ctx context.Context, runId int, line string) error {
	return tx.WithContext(ctx).Model(&Run{}).
		Where("id = ?", runId).
		Update("output_log", gorm.Expr("CONCAT(COALESCE(output_log, ''), ?)", line+"\n")).Error
}
