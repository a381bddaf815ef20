package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	pkgerrors "github.com/KirtanKRP/chrono-campus-app/pkg/errors"
)

// CycleRepository 分配周期数据访问接口
type CycleRepository interface {
	Create(ctx context.Context, cycle *model.AllocationCycle) error
	GetByID(ctx context.Context, id string) (*model.AllocationCycle, error)
	GetByKey(ctx context.Context, department string, semester int, term string) (*model.AllocationCycle, error)
	List(ctx context.Context, offset, limit int) ([]model.AllocationCycle, int64, error)
	Update(ctx context.Context, cycle *model.AllocationCycle) error
}

type cycleRepo struct {
	db *gorm.DB
}

func NewCycleRepo(db *gorm.DB) CycleRepository {
	return &cycleRepo{db: db}
}

func (r *cycleRepo) Create(ctx context.Context, cycle *model.AllocationCycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *cycleRepo) GetByID(ctx context.Context, id string) (*model.AllocationCycle, error) {
	var cycle model.AllocationCycle
	err := r.db.WithContext(ctx).
		Where("cycle_id = ?", id).
		First(&cycle).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *cycleRepo) GetByKey(ctx context.Context, department string, semester int, term string) (*model.AllocationCycle, error) {
	var cycle model.AllocationCycle
	err := r.db.WithContext(ctx).
		Where("department = ? AND semester = ? AND term = ?", department, semester, term).
		First(&cycle).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *cycleRepo) List(ctx context.Context, offset, limit int) ([]model.AllocationCycle, int64, error) {
	var cycles []model.AllocationCycle
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.AllocationCycle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&cycles).Error
	return cycles, total, err
}

func (r *cycleRepo) Update(ctx context.Context, cycle *model.AllocationCycle) error {
	oldVersion := cycle.Version
	result := r.db.WithContext(ctx).
		Model(cycle).
		Where("cycle_id = ? AND version = ?", cycle.CycleID, oldVersion).
		Updates(map[string]interface{}{
			"max_choices":         cycle.MaxChoices,
			"submission_deadline": cycle.SubmissionDeadline,
			"status":              cycle.Status,
			"updated_by":          cycle.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	cycle.Version = oldVersion + 1
	return nil
}
