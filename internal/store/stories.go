package store

import (
	"context"

	"project-management-api/internal/models"

	"gorm.io/gorm"
)

// UserStoryPatch lists the story fields an update may change.
type UserStoryPatch struct {
	Title              *string
	Description        *string
	AcceptanceCriteria models.Nullable[string]
}

// CreateUserStories inserts stories into projectID in one transaction.
// Either every story persists or none does.
func (s *Store) CreateUserStories(ctx context.Context, projectID uint, stories []models.UserStory) error {
	if len(stories) == 0 {
		return nil
	}
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Project{}, projectID, "project"); err != nil {
			return err
		}
		for i := range stories {
			stories[i].ProjectID = projectID
		}
		return tx.Create(&stories).Error
	})
}

// GetUserStory returns the user story with id.
func (s *Store) GetUserStory(ctx context.Context, id uint) (*models.UserStory, error) {
	var story models.UserStory
	if err := s.conn(ctx).First(&story, id).Error; err != nil {
		return nil, lookup(err, "user story")
	}
	return &story, nil
}

// ListUserStories returns a page of a project's stories and the total count.
func (s *Store) ListUserStories(ctx context.Context, projectID uint, page Page) ([]models.UserStory, int64, error) {
	base := func() *gorm.DB {
		return s.conn(ctx).Model(&models.UserStory{}).Where("project_id = ?", projectID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translate(err, "failed to count user stories")
	}
	var stories []models.UserStory
	if err := page.apply(base().Order("id")).Find(&stories).Error; err != nil {
		return nil, 0, translate(err, "failed to fetch user stories")
	}
	return stories, total, nil
}

// UpdateUserStory applies patch to the story with id.
func (s *Store) UpdateUserStory(ctx context.Context, id uint, patch UserStoryPatch) (*models.UserStory, error) {
	cols := map[string]any{}
	if patch.Title != nil {
		cols["title"] = *patch.Title
	}
	if patch.Description != nil {
		cols["description"] = *patch.Description
	}
	if patch.AcceptanceCriteria.Set {
		cols["acceptance_criteria"] = patch.AcceptanceCriteria.Value
	}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.UserStory{}, id, "user story"); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&models.UserStory{ID: id}).Updates(cols).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetUserStory(ctx, id)
}

// DeleteUserStory removes a user story.
func (s *Store) DeleteUserStory(ctx context.Context, id uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.UserStory{}, id, "user story"); err != nil {
			return err
		}
		return tx.Delete(&models.UserStory{}, id).Error
	})
}
