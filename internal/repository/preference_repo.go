package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/model"
)

// PreferenceListRepository 志愿表数据访问接口
type PreferenceListRepository interface {
	// Upsert 创建或整体覆盖学生在某周期的志愿表
	Upsert(ctx context.Context, list *model.PreferenceList) error
	GetByStudentAndCycle(ctx context.Context, studentID, cycleID string) (*model.PreferenceList, error)
	ListByCycle(ctx context.Context, cycleID string) ([]model.PreferenceList, error)
}

type preferenceListRepo struct {
	db *gorm.DB
}

func NewPreferenceListRepo(db *gorm.DB) PreferenceListRepository {
	return &preferenceListRepo{db: db}
}

func (r *preferenceListRepo) Upsert(ctx context.Context, list *model.PreferenceList) error {
	var existing model.PreferenceList
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND cycle_id = ?", list.StudentID, list.CycleID).
		First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.db.WithContext(ctx).Create(list).Error
		}
		return err
	}

	list.PreferenceListID = existing.PreferenceListID
	return r.db.WithContext(ctx).
		Model(&model.PreferenceList{}).
		Where("preference_list_id = ?", existing.PreferenceListID).
		Updates(map[string]interface{}{
			"choices":      list.Choices,
			"submitted_at": list.SubmittedAt,
			"updated_at":   time.Now(),
		}).Error
}

func (r *preferenceListRepo) GetByStudentAndCycle(ctx context.Context, studentID, cycleID string) (*model.PreferenceList, error) {
	var list model.PreferenceList
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND cycle_id = ?", studentID, cycleID).
		First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *preferenceListRepo) ListByCycle(ctx context.Context, cycleID string) ([]model.PreferenceList, error) {
	var lists []model.PreferenceList
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("cycle_id = ?", cycleID).
		Order("student_id ASC").
		Find(&lists).Error
	return lists, err
}
