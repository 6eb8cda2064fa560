package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"story-endings/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create audit entry failed: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByEnding(ctx context.Context, endingID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var entries []model.AuditEntry
	if err := r.db.WithContext(ctx).Where("ending_id = ?", endingID).Order("occurred_at ASC, id ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list audit entries failed: %w", err)
	}
	return entries, nil
}
