package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/project-management-api/internal/utils"
)

// Alive filters out soft-deleted rows. Every default read path applies it;
// only the explicit with-deleted and hard-delete paths skip it.
func Alive(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// AliveIn filters out soft-deleted rows of a specific table in joined queries.
func AliveIn(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_deleted = ?", false)
	}
}

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}
