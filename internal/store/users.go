package store

import (
	"context"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/models"

	"gorm.io/gorm"
)

// UserPatch lists the user fields an update may change. Nil fields are
// left untouched.
type UserPatch struct {
	Username     *string
	Email        *string
	FullName     *string
	Role         *models.Role
	IsActive     *bool
	PasswordHash *string
}

func (p UserPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Username != nil {
		cols["username"] = *p.Username
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.FullName != nil {
		cols["full_name"] = *p.FullName
	}
	if p.Role != nil {
		cols["role"] = *p.Role
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.PasswordHash != nil {
		cols["hashed_password"] = *p.PasswordHash
	}
	return cols
}

const loginConflict = "Username or email already registered"

// CreateUser inserts u. A duplicate username or email is a Conflict, both
// when detected up front and when a concurrent writer wins the race to the
// unique index.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		taken, err := loginTaken(tx, u.Username, u.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict(loginConflict)
		}
		return conflictAs(tx.Create(u).Error, loginConflict)
	})
}

// loginTaken reports whether username or email belongs to a user other
// than exceptID.
func loginTaken(tx *gorm.DB, username, email string, exceptID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.User{}).
		Where("(username = ? OR email = ?) AND id <> ?", username, email, exceptID).
		Count(&count).Error
	return count > 0, err
}

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, lookup(err, "user")
	}
	return &u, nil
}

// FindUserByLogin returns the user whose username or email equals login.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.conn(ctx).Where("username = ? OR email = ?", login, login).First(&u).Error
	if err != nil {
		return nil, lookup(err, "user")
	}
	return &u, nil
}

// ListUsers returns users ordered by id.
func (s *Store) ListUsers(ctx context.Context, page Page) ([]models.User, error) {
	var users []models.User
	if err := page.apply(s.conn(ctx).Order("id")).Find(&users).Error; err != nil {
		return nil, translate(err, "failed to fetch users")
	}
	return users, nil
}

// UpdateUser applies patch to the user with id and returns the result.
func (s *Store) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	var u models.User
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return lookup(err, "user")
		}
		if patch.Username != nil || patch.Email != nil {
			username, email := u.Username, u.Email
			if patch.Username != nil {
				username = *patch.Username
			}
			if patch.Email != nil {
				email = *patch.Email
			}
			taken, err := loginTaken(tx, username, email, id)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.Conflict(loginConflict)
			}
		}
		if cols := patch.columns(); len(cols) > 0 {
			if err := tx.Model(&u).Updates(cols).Error; err != nil {
				return conflictAs(err, loginConflict)
			}
		}
		return tx.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserProjects returns the projects a user manages and the projects they
// are a member of.
func (s *Store) UserProjects(ctx context.Context, id uint) (managed, member []models.Project, err error) {
	db := s.conn(ctx)
	if err = db.Where("manager_id = ?", id).Order("id").Find(&managed).Error; err != nil {
		return nil, nil, translate(err, "failed to fetch projects")
	}
	if err = db.Where("id IN ("+memberSubquery+")", id).Order("id").Find(&member).Error; err != nil {
		return nil, nil, translate(err, "failed to fetch projects")
	}
	return managed, member, nil
}

// DeleteUser removes a user. A user who still manages projects cannot be
// deleted; otherwise their assignments are cleared and their memberships
// and comments removed in the same transaction.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		ok, err := exists(tx, &models.User{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NotFound("user")
		}

		var managed int64
		if err := tx.Model(&models.Project{}).Where("manager_id = ?", id).Count(&managed).Error; err != nil {
			return err
		}
		if managed > 0 {
			return apperrors.Conflict("user still manages projects")
		}

		if err := tx.Model(&models.Task{}).Where("assignee_id = ?", id).Update("assignee_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}
