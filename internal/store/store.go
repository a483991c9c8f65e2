// Package store persists users, projects, tasks, comments and user stories.
// Every multi-step write runs in a single transaction.
package store

import (
	"context"
	"errors"
	"strings"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/authz"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Page is an offset window over an ordered result.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	return db.Offset(skip).Limit(limit)
}

// Store is the domain store backed by gorm.
type Store struct {
	db *gorm.DB
}

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.conn(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return translate(err, "transaction failed")
}

// translate converts driver errors into the application taxonomy.
func translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return apperrors.Conflict("Resource already exists")
	}
	return apperrors.Internal(message, err)
}

// conflictAs reports a unique violation in err as a Conflict carrying
// message. Other errors are returned unchanged.
func conflictAs(err error, message string) error {
	if err != nil && isUniqueViolation(err) {
		return apperrors.Conflict(message)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func lookup(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource)
	}
	return translate(err, "failed to fetch "+resource)
}

// exists reports whether a row with id exists in model's table.
func exists(tx *gorm.DB, model any, id uint) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

const (
	memberSubquery  = "SELECT project_id FROM project_members WHERE user_id = ?"
	managedSubquery = "SELECT id FROM projects WHERE manager_id = ?"
)

// scopeProjects narrows a projects query to rows visible under scope.
func scopeProjects(db *gorm.DB, scope authz.Scope) *gorm.DB {
	if scope.Unrestricted {
		return db
	}
	var conds []string
	var args []any
	if scope.ManagerID != 0 {
		conds = append(conds, "projects.manager_id = ?")
		args = append(args, scope.ManagerID)
	}
	if scope.MemberID != 0 {
		conds = append(conds, "projects.id IN ("+memberSubquery+")")
		args = append(args, scope.MemberID)
	}
	return where(db, conds, args)
}

// scopeTasks narrows a tasks query to rows visible under scope.
func scopeTasks(db *gorm.DB, scope authz.Scope) *gorm.DB {
	if scope.Unrestricted {
		return db
	}
	var conds []string
	var args []any
	if scope.AssigneeID != 0 {
		conds = append(conds, "tasks.assignee_id = ?")
		args = append(args, scope.AssigneeID)
	}
	if scope.ManagerID != 0 {
		conds = append(conds, "tasks.project_id IN ("+managedSubquery+")")
		args = append(args, scope.ManagerID)
	}
	if scope.MemberID != 0 {
		conds = append(conds, "tasks.project_id IN ("+memberSubquery+")")
		args = append(args, scope.MemberID)
	}
	return where(db, conds, args)
}

func where(db *gorm.DB, conds []string, args []any) *gorm.DB {
	if len(conds) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
