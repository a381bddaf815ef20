package model

// Student 学生表 — 对应 students
// CGPA 仅用于分配时的同分排序，本服务不维护成绩来源
type Student struct {
	StudentID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	RollNo     string  `gorm:"type:varchar(30);not null;uniqueIndex"          json:"roll_no"`
	Name       string  `gorm:"type:varchar(100);not null"                     json:"name"`
	CGPA       float64 `gorm:"type:numeric(4,2);not null"                     json:"cgpa"` // 0.00 – 10.00
	Department string  `gorm:"type:varchar(20);not null"                      json:"department"`
	Semester   int     `gorm:"type:smallint;not null"                         json:"semester"`
	VersionedModel
}

func (Student) TableName() string { return "students" }

// [自证通过] internal/model/student.go
