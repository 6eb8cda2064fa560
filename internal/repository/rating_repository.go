package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"story-endings/internal/model"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Save upserts the user's score and stores the new average on the ending,
// returning that average.
func (r *RatingRepository) Save(ctx context.Context, rating *model.Rating) (float64, error) {
	var average float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ending_id"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(rating).Error; err != nil {
			return err
		}

		row := tx.Model(&model.Rating{}).
			Select("COALESCE(AVG(score), 0)").
			Where("ending_id = ?", rating.EndingID).
			Row()
		if err := row.Scan(&average); err != nil {
			return err
		}

		return tx.Model(&model.Ending{}).Where("id = ?", rating.EndingID).Update("rating", average).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save rating failed: %w", err)
	}
	return average, nil
}

// ScoreOf returns the user's score for the ending, 0 when not rated.
func (r *RatingRepository) ScoreOf(ctx context.Context, endingID, username string) (int, error) {
	var ratings []model.Rating
	if err := r.db.WithContext(ctx).
		Where("ending_id = ? AND username = ?", endingID, username).
		Limit(1).
		Find(&ratings).Error; err != nil {
		return 0, fmt.Errorf("query rating failed: %w", err)
	}
	if len(ratings) == 0 {
		return 0, nil
	}
	return ratings[0].Score, nil
}
