package models

import (
	"context"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"gorm.io/gorm"
)

// Mode is a named dispatch policy: how many consecutive direct hires a
// contractor may take before a dispatch hire is mandated.
type Mode struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:50;not null;unique" json:"name" binding:"required"`
	AllowedDirect int       `gorm:"not null" json:"allowed_direct" binding:"required"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	ModeNameTwoToOne   = "2-to-1"
	ModeNameThreeToOne = "3-to-1"
)

func GetModeById(tx *gorm.DB, ctx context.Context, id int) (*Mode, error) {
	var mode Mode
	err := tx.WithContext(ctx).Where("id = ?", id).First(&mode).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &mode, nil
}

func ListModes(ctx context.Context) ([]*Mode, error) {
	db := config.GetDB()
	var modes []*Mode
	if err := db.WithContext(ctx).Order("allowed_direct asc").Find(&modes).Error; err != nil {
		return nil, err
	}
	return modes, nil
}

// SeedDefaultModes creates the two standard dispatch policies when absent.
func SeedDefaultModes(ctx context.Context, db *gorm.DB) error {
	defaults := []Mode{
		{Name: ModeNameTwoToOne, AllowedDirect: 2},
		{Name: ModeNameThreeToOne, AllowedDirect: 3},
	}
	for _, mode := range defaults {
		var count int64
		if err := db.WithContext(ctx).Model(&Mode{}).Where("name = ?", mode.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.WithContext(ctx).Create(&mode).Error; err != nil {
			return err
		}
	}
	return nil
}
