package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dashboardTTL         = 5 * time.Minute
	dashboardRecentTasks = 10
)

// ProjectProgress summarizes one project's task completion.
type ProjectProgress struct {
	ProjectID   uuid.UUID            `json:"project_id"`
	Name        string               `json:"name"`
	Status      models.ProjectStatus `json:"status"`
	TotalTasks  int64                `json:"total_tasks"`
	DoneTasks   int64                `json:"done_tasks"`
	ProgressPct float64              `json:"progress_pct"`
}

// RecentTask is a task entry on the dashboard, newest first.
type RecentTask struct {
	TaskID      uuid.UUID           `json:"task_id"`
	ProjectID   uuid.UUID           `json:"project_id"`
	ProjectName string              `json:"project_name"`
	Title       string              `json:"title"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	CreatedAt   time.Time           `json:"created_at"`
}

// DashboardData is the per-client aggregate served from cache when fresh.
type DashboardData struct {
	ClientID       uuid.UUID         `json:"client_id"`
	GeneratedAt    time.Time         `json:"generated_at"`
	TotalProjects  int64             `json:"total_projects"`
	ActiveProjects int64             `json:"active_projects"`
	Projects       []ProjectProgress `json:"projects"`
	RecentTasks    []RecentTask      `json:"recent_tasks"`
}

// DashboardService computes per-client aggregates and caches them. Writes
// elsewhere publish invalidations through cache.ClientInvalidator; a missed
// invalidation only lives until the TTL expires.
type DashboardService struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db *gorm.DB, c cache.Cache) *DashboardService {
	return &DashboardService{db: db, cache: c}
}

// GetDashboard returns the client's dashboard, from cache when possible.
func (s *DashboardService) GetDashboard(ctx context.Context, clientID uuid.UUID) (*DashboardData, error) {
	key := cache.DashboardKey(clientID)

	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err != nil {
			logger.FromContext(ctx).Warn("dashboard cache read failed", zap.Error(err))
		} else if ok {
			var data DashboardData
			if err := json.Unmarshal(raw, &data); err == nil {
				return &data, nil
			}
			// Unreadable entry; fall through and rebuild.
		}
	}

	data, err := s.build(clientID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(data); err == nil {
			if err := s.cache.Set(ctx, key, raw, dashboardTTL); err != nil {
				logger.FromContext(ctx).Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}

	return data, nil
}

func (s *DashboardService) build(clientID uuid.UUID) (*DashboardData, error) {
	var projects []models.Project
	if err := s.db.Scopes(database.Alive).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	data := &DashboardData{
		ClientID:      clientID,
		GeneratedAt:   time.Now().UTC(),
		TotalProjects: int64(len(projects)),
		Projects:      make([]ProjectProgress, 0, len(projects)),
		RecentTasks:   []RecentTask{},
	}

	projectIDs := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		if p.Status == models.ProjectStatusActive {
			data.ActiveProjects++
		}
		projectIDs = append(projectIDs, p.ID)
	}

	counts, err := s.taskCounts(projectIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range projects {
		progress := ProjectProgress{
			ProjectID: p.ID,
			Name:      p.Name,
			Status:    p.Status,
		}
		for status, n := range counts[p.ID] {
			progress.TotalTasks += n
			if status == models.TaskStatusDone {
				progress.DoneTasks += n
			}
		}
		if progress.TotalTasks > 0 {
			progress.ProgressPct = float64(progress.DoneTasks) / float64(progress.TotalTasks) * 100
		}
		data.Projects = append(data.Projects, progress)
	}

	recent, err := s.recentTasks(clientID)
	if err != nil {
		return nil, err
	}
	data.RecentTasks = recent

	return data, nil
}

func (s *DashboardService) taskCounts(projectIDs []uuid.UUID) (map[uuid.UUID]map[models.TaskStatus]int64, error) {
	counts := make(map[uuid.UUID]map[models.TaskStatus]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ProjectID uuid.UUID
		Status    models.TaskStatus
		Count     int64
	}
	if err := s.db.Model(&models.Task{}).
		Select("project_id, status, COUNT(*) AS count").
		Where("project_id IN ? AND is_deleted = ?", projectIDs, false).
		Group("project_id, status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	for _, row := range rows {
		if counts[row.ProjectID] == nil {
			counts[row.ProjectID] = make(map[models.TaskStatus]int64)
		}
		counts[row.ProjectID][row.Status] = row.Count
	}
	return counts, nil
}

func (s *DashboardService) recentTasks(clientID uuid.UUID) ([]RecentTask, error) {
	var rows []struct {
		TaskID      uuid.UUID
		ProjectID   uuid.UUID
		ProjectName string
		Title       string
		Status      models.TaskStatus
		Priority    models.TaskPriority
		CreatedAt   time.Time
	}
	if err := s.db.Model(&models.Task{}).
		Select("tasks.id AS task_id, tasks.project_id, projects.name AS project_name, tasks.title, tasks.status, tasks.priority, tasks.created_at").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("projects.client_id = ?", clientID).
		Scopes(database.AliveIn("tasks"), database.AliveIn("projects")).
		Order("tasks.created_at DESC").
		Limit(dashboardRecentTasks).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent tasks: %w", err)
	}

	tasks := make([]RecentTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, RecentTask{
			TaskID:      row.TaskID,
			ProjectID:   row.ProjectID,
			ProjectName: row.ProjectName,
			Title:       row.Title,
			Status:      row.Status,
			Priority:    row.Priority,
			CreatedAt:   row.CreatedAt,
		})
	}
	return tasks, nil
}
