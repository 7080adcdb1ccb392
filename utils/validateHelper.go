package utils

import (
	"context"

	"gorm.io/gorm"
)

// ValidateResourceId checks that a row with the given id exists.
// Returns ErrorRecordNotFound so callers can map it to a 404.
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, id interface{}) error {
	var count int64
	var model T
	if err := db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
