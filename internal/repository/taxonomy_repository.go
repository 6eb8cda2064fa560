package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"story-endings/internal/model"
)

// TaxonomyRepository reads the genre and type reference tables.
type TaxonomyRepository struct {
	db *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

func (r *TaxonomyRepository) ListGenres(ctx context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("list genres failed: %w", err)
	}
	return genres, nil
}

func (r *TaxonomyRepository) ListTypes(ctx context.Context) ([]model.EndingType, error) {
	var types []model.EndingType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list types failed: %w", err)
	}
	return types, nil
}

func (r *TaxonomyRepository) GenreExists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Genre{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count genres failed: %w", err)
	}
	return count > 0, nil
}

func (r *TaxonomyRepository) TypeExists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.EndingType{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count types failed: %w", err)
	}
	return count > 0, nil
}

// Seed inserts the given names into empty taxonomy tables. Tables that
// already hold rows are left untouched.
func (r *TaxonomyRepository) Seed(ctx context.Context, genres, types []string) error {
	db := r.db.WithContext(ctx)

	var genreCount int64
	if err := db.Model(&model.Genre{}).Count(&genreCount).Error; err != nil {
		return fmt.Errorf("count genres failed: %w", err)
	}
	if genreCount == 0 && len(genres) > 0 {
		rows := make([]model.Genre, 0, len(genres))
		for _, name := range genres {
			rows = append(rows, model.Genre{Name: name})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("seed genres failed: %w", err)
		}
	}

	var typeCount int64
	if err := db.Model(&model.EndingType{}).Count(&typeCount).Error; err != nil {
		return fmt.Errorf("count types failed: %w", err)
	}
	if typeCount == 0 && len(types) > 0 {
		rows := make([]model.EndingType, 0, len(types))
		for _, name := range types {
			rows = append(rows, model.EndingType{Name: name})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("seed types failed: %w", err)
		}
	}
	return nil
}
