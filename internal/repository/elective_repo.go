package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	pkgerrors "github.com/KirtanKRP/chrono-campus-app/pkg/errors"
)

// ElectiveRepository 选修课数据访问接口
type ElectiveRepository interface {
	Create(ctx context.Context, elective *model.Elective) error
	GetByID(ctx context.Context, id string) (*model.Elective, error)
	GetByCode(ctx context.Context, code string) (*model.Elective, error)
	List(ctx context.Context, department string, semester, offset, limit int) ([]model.Elective, int64, error)
	ListByCohort(ctx context.Context, department string, semester int) ([]model.Elective, error)
	Update(ctx context.Context, elective *model.Elective) error
	Delete(ctx context.Context, id string) error
}

type electiveRepo struct {
	db *gorm.DB
}

func NewElectiveRepo(db *gorm.DB) ElectiveRepository {
	return &electiveRepo{db: db}
}

func (r *electiveRepo) Create(ctx context.Context, elective *model.Elective) error {
	return r.db.WithContext(ctx).Create(elective).Error
}

func (r *electiveRepo) GetByID(ctx context.Context, id string) (*model.Elective, error) {
	var elective model.Elective
	err := r.db.WithContext(ctx).
		Where("elective_id = ?", id).
		First(&elective).Error
	if err != nil {
		return nil, err
	}
	return &elective, nil
}

func (r *electiveRepo) GetByCode(ctx context.Context, code string) (*model.Elective, error) {
	var elective model.Elective
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&elective).Error
	if err != nil {
		return nil, err
	}
	return &elective, nil
}

func (r *electiveRepo) List(ctx context.Context, department string, semester, offset, limit int) ([]model.Elective, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Elective{})
	if department != "" {
		query = query.Where("department = ?", department)
	}
	if semester > 0 {
		query = query.Where("semester = ?", semester)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var electives []model.Elective
	err := query.
		Order("code ASC").
		Offset(offset).Limit(limit).
		Find(&electives).Error
	return electives, total, err
}

func (r *electiveRepo) ListByCohort(ctx context.Context, department string, semester int) ([]model.Elective, error) {
	var electives []model.Elective
	err := r.db.WithContext(ctx).
		Where("department = ? AND semester = ? AND is_active = TRUE", department, semester).
		Order("elective_id ASC").
		Find(&electives).Error
	return electives, err
}

func (r *electiveRepo) Update(ctx context.Context, elective *model.Elective) error {
	oldVersion := elective.Version
	result := r.db.WithContext(ctx).
		Model(elective).
		Where("elective_id = ? AND version = ?", elective.ElectiveID, oldVersion).
		Updates(map[string]interface{}{
			"name":       elective.Name,
			"capacity":   elective.Capacity,
			"is_active":  elective.IsActive,
			"updated_by": elective.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	elective.Version = oldVersion + 1
	return nil
}

func (r *electiveRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("elective_id = ?", id).
		Delete(&model.Elective{}).Error
}
