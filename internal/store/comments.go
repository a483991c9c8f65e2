package store

import (
	"context"

	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateComment inserts c on an existing task and loads its author.
func (s *Store) CreateComment(ctx context.Context, c *models.TaskComment) error {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Task{}, c.TaskID, "task"); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(c).Error
	})
	if err != nil {
		return err
	}
	fresh, err := s.GetComment(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// GetComment returns the comment with id and its author.
func (s *Store) GetComment(ctx context.Context, id uint) (*models.TaskComment, error) {
	var c models.TaskComment
	if err := s.conn(ctx).Preload("Author").First(&c, id).Error; err != nil {
		return nil, lookup(err, "comment")
	}
	return &c, nil
}

// ListComments returns the comments of a task, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID uint) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	err := s.conn(ctx).Preload("Author").Where("task_id = ?", taskID).Order("created_at, id").Find(&comments).Error
	if err != nil {
		return nil, translate(err, "failed to fetch comments")
	}
	return comments, nil
}

// UpdateComment replaces the content of a comment.
func (s *Store) UpdateComment(ctx context.Context, id uint, content string) (*models.TaskComment, error) {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.TaskComment{}, id, "comment"); err != nil {
			return err
		}
		return tx.Model(&models.TaskComment{ID: id}).Update("content", content).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetComment(ctx, id)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.TaskComment{}, id, "comment"); err != nil {
			return err
		}
		return tx.Delete(&models.TaskComment{}, id).Error
	})
}
