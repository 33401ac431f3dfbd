package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CompareAndSwapColumn performs an optimistic single-column update: the write
// only lands if the stored value still equals expected. It reports false when
// a concurrent writer got there first. Callers that follow the swap with a
// dependent insert should restore the previous value if that insert fails.
func CompareAndSwapColumn(ctx context.Context, tx *gorm.DB, model any, id any, column string, expected, next any) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction required for compare-and-swap")
	}
	res := tx.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Where(fmt.Sprintf("%s = ?", column), expected).
		Update(column, next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
