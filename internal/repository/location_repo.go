package repository

import (
	"context"

	"mypostelma/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, l *model.Location) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	List(ctx context.Context, activeOnly bool) ([]model.Location, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}

func (r *locationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r *locationRepo) List(ctx context.Context, activeOnly bool) ([]model.Location, error) {
	var out []model.Location
	q := r.db.WithContext(ctx).Order("code ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// SetActive toggles a location. The column update goes through a map so that
// false is written instead of being skipped as a zero value.
func (r *locationRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Location{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
