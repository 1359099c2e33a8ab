package db

import (
	"gorm.io/gorm"
)

// Guard describes a conditional write: the update is applied only while the
// row still matches every expectation.
type Guard struct {
	Table  string
	ID     any
	Expect map[string]any
	// ExpectNull lists columns that must still be NULL.
	ExpectNull []string
}

// GuardedUpdate performs UPDATE ... WHERE id = ? AND <expectations> and
// reports whether exactly one row changed. A false result with a nil error
// means another writer moved the row first.
func GuardedUpdate(tx *gorm.DB, guard Guard, updates map[string]any) (bool, error) {
	query := tx.Table(guard.Table).Where("id = ?", guard.ID)
	for column, value := range guard.Expect {
		query = query.Where(column+" = ?", value)
	}
	for _, column := range guard.ExpectNull {
		query = query.Where(column + " IS NULL")
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
