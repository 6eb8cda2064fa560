package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"story-endings/internal/model"
)

type EndingRepository struct {
	db *gorm.DB
}

func NewEndingRepository(db *gorm.DB) *EndingRepository {
	return &EndingRepository{db: db}
}

func (r *EndingRepository) Create(ctx context.Context, ending *model.Ending) error {
	if err := r.db.WithContext(ctx).Create(ending).Error; err != nil {
		return fmt.Errorf("create ending failed: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when no ending matches.
func (r *EndingRepository) GetByID(ctx context.Context, id string) (*model.Ending, error) {
	var ending model.Ending
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ending).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ending failed: %w", err)
	}
	return &ending, nil
}

// Latest returns the most recently dated ending, or nil for an empty store.
func (r *EndingRepository) Latest(ctx context.Context) (*model.Ending, error) {
	return r.first(ctx, "ending_date DESC", "")
}

// TopRated returns the highest rated ending; ties go to the newer one. Endings
// nobody has rated yet are skipped, so it is nil until the first rating.
func (r *EndingRepository) TopRated(ctx context.Context) (*model.Ending, error) {
	return r.first(ctx, "rating DESC, ending_date DESC", "rating > ?", 0)
}

func (r *EndingRepository) ListByCreator(ctx context.Context, username string) ([]model.Ending, error) {
	var endings []model.Ending
	if err := r.db.WithContext(ctx).Where("created_by = ?", username).Order("ending_date DESC").Find(&endings).Error; err != nil {
		return nil, fmt.Errorf("list endings by creator failed: %w", err)
	}
	return endings, nil
}

// Replace overwrites every user-controlled column plus ending_date and created_by.
// Rating is left alone. It reports whether a row matched.
func (r *EndingRepository) Replace(ctx context.Context, ending *model.Ending) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Ending{}).
		Where("id = ?", ending.ID).
		Select("genre_name", "ending_type", "ending_name", "ending_description", "ending_date", "created_by").
		Updates(map[string]any{
			"genre_name":         ending.GenreName,
			"ending_type":        ending.EndingType,
			"ending_name":        ending.EndingName,
			"ending_description": ending.EndingDescription,
			"ending_date":        ending.EndingDate,
			"created_by":         ending.CreatedBy,
		})
	if result.Error != nil {
		return false, fmt.Errorf("replace ending failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the ending and its ratings. Deleting a missing id is not an error.
func (r *EndingRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ending_id = ?", id).Delete(&model.Rating{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Ending{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete ending failed: %w", err)
	}
	return nil
}

func (r *EndingRepository) first(ctx context.Context, order, where string, args ...any) (*model.Ending, error) {
	query := r.db.WithContext(ctx).Order(order).Limit(1)
	if where != "" {
		query = query.Where(where, args...)
	}
	var endings []model.Ending
	if err := query.Find(&endings).Error; err != nil {
		return nil, fmt.Errorf("query ending ordered by %s failed: %w", order, err)
	}
	if len(endings) == 0 {
		return nil, nil
	}
	return &endings[0], nil
}
