package utils

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
)

// ValidateResourceId returns ErrorRecordNotFound when no row of T has the id.
// Used before creating records that reference T, so a bad foreign key
// surfaces as a 404 instead of a database error.
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateUnique rejects a duplicate value in column; exceptId excludes the
// row being updated (pass 0 on create).
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId int) error {
	var count int64
	var err error
	if exceptId == 0 {
		count, err = ResourceCountWhere[T](ctx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&model).
		Where(condition, value...).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
