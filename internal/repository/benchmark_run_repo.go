package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/forge/internal/models"
)

const defaultRunListLimit = 20

// BenchmarkRunRepository persists benchmark run summaries.
type BenchmarkRunRepository interface {
	Create(ctx context.Context, run *models.BenchmarkRun) error
	Latest(ctx context.Context, domain string) (*models.BenchmarkRun, error)
	ListByDomain(ctx context.Context, domain string, limit int) ([]models.BenchmarkRun, error)
}

// NewBenchmarkRunRepository constructs a benchmark run repository.
func NewBenchmarkRunRepository(db *gorm.DB) BenchmarkRunRepository {
	return &benchmarkRunRepository{db: db}
}

type benchmarkRunRepository struct {
	db *gorm.DB
}

func (r *benchmarkRunRepository) Create(ctx context.Context, run *models.BenchmarkRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Latest returns the most recent run of a domain, or nil when none exists.
func (r *benchmarkRunRepository) Latest(ctx context.Context, domain string) (*models.BenchmarkRun, error) {
	var run models.BenchmarkRun
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Order("evaluated_at DESC").
		Order("id DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *benchmarkRunRepository) ListByDomain(ctx context.Context, domain string, limit int) ([]models.BenchmarkRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	var runs []models.BenchmarkRun
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Order("evaluated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
