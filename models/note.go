package models

import (
	"context"
	"errors"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
)

const (
	NoteReferenceTypeReport   = "Report"
	NoteReferenceTypeEmployer = "Employer"
)

// Note is a free-text audit comment with author and timestamp, scoped to
// a report or an employer. Notes are append-only.
type Note struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Description   string    `gorm:"type:text;not null" json:"description" binding:"required"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:50" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewNote struct {
	Description   string `json:"description" binding:"required"`
	ReferenceID   int    `json:"reference_id" binding:"required"`
	ReferenceType string `json:"reference_type" binding:"required"`
}

func CreateNote(ctx context.Context, input *NewNote) (*Note, error) {
	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		return nil, errors.New("user name is required")
	}
	if input.ReferenceType != NoteReferenceTypeReport && input.ReferenceType != NoteReferenceTypeEmployer {
		return nil, errors.New("invalid note reference type")
	}

	switch input.ReferenceType {
	case NoteReferenceTypeReport:
		if err := utils.ValidateResourceId[Report](ctx, db, input.ReferenceID); err != nil {
			return nil, err
		}
	case NoteReferenceTypeEmployer:
		if err := utils.ValidateResourceId[Employer](ctx, db, input.ReferenceID); err != nil {
			return nil, err
		}
	}

	note := Note{
		Description:   input.Description,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		UserId:        userId,
		UserName:      userName,
	}
	if err := db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func GetNotes(ctx context.Context, referenceId int, referenceType string) ([]*Note, error) {
	db := config.GetDB()
	var notes []*Note
	err := db.WithContext(ctx).
		Where("reference_id = ? AND reference_type = ?", referenceId, referenceType).
		Order("created_at desc").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
