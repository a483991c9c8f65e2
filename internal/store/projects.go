package store

import (
	"context"
	"fmt"
	"time"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectPatch lists the project fields an update may change. MemberIDs,
// when non-nil, replaces the whole member set.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	StartDate   models.Nullable[time.Time]
	EndDate     models.Nullable[time.Time]
	ManagerID   *uint
	MemberIDs   []uint
}

func (p ProjectPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.StartDate.Set {
		cols["start_date"] = p.StartDate.Value
	}
	if p.EndDate.Set {
		cols["end_date"] = p.EndDate.Value
	}
	if p.ManagerID != nil {
		cols["manager_id"] = *p.ManagerID
	}
	return cols
}

// TaskCount is the number of tasks in a project and how many are done.
type TaskCount struct {
	Total     int64
	Completed int64
}

// CreateProject inserts p and attaches memberIDs atomically.
func (s *Store) CreateProject(ctx context.Context, p *models.Project, memberIDs []uint) error {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		ok, err := exists(tx, &models.User{}, p.ManagerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Validation("manager not found")
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return replaceMembers(tx, p.ID, memberIDs)
	})
	if err != nil {
		return err
	}
	return s.loadProject(s.conn(ctx), p)
}

// replaceMembers sets the member set of projectID to memberIDs.
func replaceMembers(tx *gorm.DB, projectID uint, memberIDs []uint) error {
	ids := dedupe(memberIDs)
	if len(ids) > 0 {
		var found int64
		if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(ids)) {
			return apperrors.Validation("unknown member id")
		}
	}

	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]models.ProjectMember, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.ProjectMember{ProjectID: projectID, UserID: id})
	}
	return tx.Create(&rows).Error
}

// GetProject returns a project with its manager and members loaded.
func (s *Store) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	return getProject(s.conn(ctx), id)
}

func getProject(db *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Preload("Manager").First(&p, id).Error; err != nil {
		return nil, lookup(err, "project")
	}
	if err := loadMembers(db, []*models.Project{&p}); err != nil {
		return nil, translate(err, "failed to fetch project members")
	}
	return &p, nil
}

// loadProject refreshes p in place from the database.
func (s *Store) loadProject(db *gorm.DB, p *models.Project) error {
	fresh, err := getProject(db, p.ID)
	if err != nil {
		return err
	}
	*p = *fresh
	return nil
}

// loadMembers fills Members for every project in projects.
func loadMembers(db *gorm.DB, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	var links []models.ProjectMember
	if err := db.Where("project_id IN ?", ids).Order("user_id").Find(&links).Error; err != nil {
		return err
	}
	userIDs := make([]uint, 0, len(links))
	for _, l := range links {
		userIDs = append(userIDs, l.UserID)
	}

	users := map[uint]models.User{}
	if len(userIDs) > 0 {
		var found []models.User
		if err := db.Where("id IN ?", dedupe(userIDs)).Find(&found).Error; err != nil {
			return err
		}
		for _, u := range found {
			users[u.ID] = u
		}
	}

	byProject := map[uint][]models.User{}
	for _, l := range links {
		if u, ok := users[l.UserID]; ok {
			byProject[l.ProjectID] = append(byProject[l.ProjectID], u)
		}
	}
	for _, p := range projects {
		p.Members = byProject[p.ID]
		if p.Members == nil {
			p.Members = []models.User{}
		}
	}
	return nil
}

// ListProjects returns the projects visible under scope, ordered by id.
func (s *Store) ListProjects(ctx context.Context, scope authz.Scope, page Page) ([]models.Project, error) {
	db := s.conn(ctx)
	var projects []models.Project
	q := scopeProjects(db.Model(&models.Project{}), scope).Preload("Manager").Order("projects.id")
	if err := page.apply(q).Find(&projects).Error; err != nil {
		return nil, translate(err, "failed to fetch projects")
	}
	ptrs := make([]*models.Project, len(projects))
	for i := range projects {
		ptrs[i] = &projects[i]
	}
	if err := loadMembers(db, ptrs); err != nil {
		return nil, translate(err, "failed to fetch project members")
	}
	return projects, nil
}

// UpdateProject applies patch to the project with id.
func (s *Store) UpdateProject(ctx context.Context, id uint, patch ProjectPatch) (*models.Project, error) {
	var out *models.Project
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		ok, err := exists(tx, &models.Project{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NotFound("project")
		}
		if patch.ManagerID != nil {
			ok, err := exists(tx, &models.User{}, *patch.ManagerID)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Validation("manager not found")
			}
		}

		cols := patch.columns()
		if patch.MemberIDs != nil {
			if err := replaceMembers(tx, id, patch.MemberIDs); err != nil {
				return err
			}
			cols["updated_at"] = time.Now()
		}
		if len(cols) > 0 {
			if err := tx.Model(&models.Project{ID: id}).Updates(cols).Error; err != nil {
				return err
			}
		}

		out, err = getProject(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember adds userID to the project. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, projectID, userID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Project{}, projectID, "project"); err != nil {
			return err
		}
		if err := mustExist(tx, &models.User{}, userID, "user"); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ProjectMember{ProjectID: projectID, UserID: userID}).Error
	})
}

// RemoveMember removes userID from the project.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Project{}, projectID, "project"); err != nil {
			return err
		}
		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.ProjectMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("member")
		}
		return nil
	})
}

// DeleteProject removes a project and everything it owns, children first:
// comments, tasks, user stories, memberships, then the project row.
func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Project{}, id, "project"); err != nil {
			return err
		}
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", id)
		steps := []struct {
			name string
			run  func() error
		}{
			{"comments", func() error { return tx.Where("task_id IN (?)", taskIDs).Delete(&models.TaskComment{}).Error }},
			{"tasks", func() error { return tx.Where("project_id = ?", id).Delete(&models.Task{}).Error }},
			{"user stories", func() error { return tx.Where("project_id = ?", id).Delete(&models.UserStory{}).Error }},
			{"members", func() error { return tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error }},
			{"project", func() error { return tx.Delete(&models.Project{}, id).Error }},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
		}
		return nil
	})
}

// ProjectTaskCounts returns task totals per project id. Projects without
// tasks are absent from the map.
func (s *Store) ProjectTaskCounts(ctx context.Context, projectIDs []uint) (map[uint]TaskCount, error) {
	counts := make(map[uint]TaskCount, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}

	type row struct {
		ProjectID uint
		Total     int64
		Completed int64
	}
	var rows []row
	err := s.conn(ctx).Model(&models.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", models.StatusDone).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "failed to count tasks")
	}
	for _, r := range rows {
		counts[r.ProjectID] = TaskCount{Total: r.Total, Completed: r.Completed}
	}
	return counts, nil
}

func mustExist(tx *gorm.DB, model any, id uint, resource string) error {
	ok, err := exists(tx, model, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound(resource)
	}
	return nil
}
