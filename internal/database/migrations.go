package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// derives from struct tags. Only meaningful on postgres; mysql deployments
// get the tag-derived indexes.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"projects", "idx_projects_client_status", "client_id, status"},
		{"tasks", "idx_tasks_project_status", "project_id, status"},
		{"tasks", "idx_tasks_project_priority", "project_id, priority"},
		{"comments", "idx_comments_task_created_at", "task_id, created_at"},
		{"client_memberships", "idx_memberships_client_role", "client_id, role"},
		{"api_keys", "idx_api_keys_user_revoked", "user_id, revoked"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
