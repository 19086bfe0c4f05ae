package models

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lowercase LIKE pattern matching q anywhere in a column.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}

func exists(query *gorm.DB, excludeID uint) (bool, error) {
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// keepInactive writes is_active = false for a freshly inserted record that
// was meant to be inactive. gorm replaces a false bool with the column
// default on insert.
func keepInactive(tx *gorm.DB, model any, id uint, active bool) error {
	if active {
		return nil
	}
	return tx.Model(model).Where("id = ?", id).UpdateColumn("is_active", false).Error
}
