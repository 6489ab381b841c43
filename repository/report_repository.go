package repository

import (
	"context"
	"fmt"

	"nashidona/db"
	"nashidona/model"

	"gorm.io/gorm"
)

// ReportRepository persists bad-link reports submitted by clients.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *model.BadLinkReport) error
}

type gormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a ReportRepository backed by GORM.
func NewGormReportRepository() ReportRepository {
	return &gormReportRepository{db: db.GormDB}
}

// CreateReport inserts a bad-link report row.
func (r *gormReportRepository) CreateReport(ctx context.Context, report *model.BadLinkReport) error {
	if r.db == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to insert bad link report: %w", err)
	}
	return nil
}
