package models

import (
	"context"
	"errors"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
)

// Employer is a signatory company whose hires are reviewed against the
// dispatch-hall quota. Contractors are identified per employer by the id
// carried on the raw hire rows.
type Employer struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name" binding:"required"`
	EmployerNumber string    `gorm:"size:50;index" json:"employer_number"`
	IsActive       *bool     `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEmployer struct {
	Name           string `json:"name" binding:"required"`
	EmployerNumber string `json:"employer_number"`
	IsActive       *bool  `json:"is_active"`
}

func CreateEmployer(ctx context.Context, input *NewEmployer) (*Employer, error) {
	db := config.GetDB()
	if input.Name == "" {
		return nil, errors.New("employer name is required")
	}
	isActive := input.IsActive
	if isActive == nil {
		active := true
		isActive = &active
	}
	employer := Employer{
		Name:           input.Name,
		EmployerNumber: input.EmployerNumber,
		IsActive:       isActive,
	}
	if err := db.WithContext(ctx).Create(&employer).Error; err != nil {
		return nil, err
	}
	return &employer, nil
}

func ListEmployers(ctx context.Context) ([]*Employer, error) {
	db := config.GetDB()
	var employers []*Employer
	if err := db.WithContext(ctx).Order("name asc").Find(&employers).Error; err != nil {
		return nil, err
	}
	return employers, nil
}
