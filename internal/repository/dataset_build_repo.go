package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/forge/internal/models"
)

// DatasetBuildRepository records curation runs.
type DatasetBuildRepository interface {
	Create(ctx context.Context, build *models.DatasetBuild) error
	ListByDomain(ctx context.Context, domain string, limit int) ([]models.DatasetBuild, error)
}

// NewDatasetBuildRepository constructs a dataset build repository.
func NewDatasetBuildRepository(db *gorm.DB) DatasetBuildRepository {
	return &datasetBuildRepository{db: db}
}

type datasetBuildRepository struct {
	db *gorm.DB
}

func (r *datasetBuildRepository) Create(ctx context.Context, build *models.DatasetBuild) error {
	return r.db.WithContext(ctx).Create(build).Error
}

func (r *datasetBuildRepository) ListByDomain(ctx context.Context, domain string, limit int) ([]models.DatasetBuild, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if domain != "" {
		query = query.Where("domain = ?", domain)
	}

	var builds []models.DatasetBuild
	if err := query.Find(&builds).Error; err != nil {
		return nil, err
	}
	return builds, nil
}
