package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// RawHire is one reviewed hire action for a contractor on a review date,
// as loaded from a dashboard upload. Rows are append-only; the run
// executor reads them and never mutates them.
type RawHire struct {
	ID             int       `gorm:"primary_key" json:"id"`
	EmployerId     int       `gorm:"index;not null" json:"employer_id"`
	ContractorId   int       `gorm:"index;not null" json:"contractor_id"`
	ContractorName string    `gorm:"size:255" json:"contractor_name"`
	MemberName     string    `gorm:"size:255" json:"member_name"`
	IANumber       string    `gorm:"size:50;index" json:"ia_number"`
	StartDate      time.Time `json:"start_date"`
	HireType       string    `gorm:"size:50" json:"hire_type"`
	ReviewedDate   time.Time `gorm:"index" json:"reviewed_date"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ContractorKey identifies one employer/contractor pair in a run's
// contractor universe.
type ContractorKey struct {
	EmployerId     int    `json:"employer_id"`
	ContractorId   int    `json:"contractor_id"`
	ContractorName string `json:"contractor_name"`
}

// GetHiresForContractor returns the contractor's hires for the reviewed
// date. The ordering (start date, reviewed date, IA number ascending) is
// the sequence the run executor folds them in; it determines every
// intermediate snapshot and the final state, so it must be stable.
func GetHiresForContractor(tx *gorm.DB, ctx context.Context, employerId int, contractorId int, reviewedDate time.Time) ([]*RawHire, error) {
	var hires []*RawHire
	err := tx.WithContext(ctx).
		Where("employer_id = ? AND contractor_id = ? AND reviewed_date = ?", employerId, contractorId, reviewedDate).
		Order("start_date asc, reviewed_date asc, ia_number asc").
		Find(&hires).Error
	if err != nil {
		return nil, err
	}
	return hires, nil
}

// GetHiringContractors returns the distinct employer/contractor pairs
// with a raw hire reviewed on or after the given date. The run executor
// unions this with the prior run's reported pairs to build the
// contractor universe.
func GetHiringContractors(tx *gorm.DB, ctx context.Context, reviewedDate time.Time) ([]*ContractorKey, error) {
	sql := `
SELECT
	employer_id,
	contractor_id,
	MAX(contractor_name) AS contractor_name
FROM
	raw_hires
WHERE
	reviewed_date >= ?
GROUP BY
	employer_id, contractor_id
`
	var keys []*ContractorKey
	if err := tx.WithContext(ctx).Raw(sql, reviewedDate).Scan(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
