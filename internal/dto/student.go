package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 创建学生请求
type CreateStudentRequest struct {
	RollNo     string  `json:"roll_no"    binding:"required,max=30"`
	Name       string  `json:"name"       binding:"required,min=2,max=100"`
	CGPA       float64 `json:"cgpa"       binding:"min=0,max=10"`
	Department string  `json:"department" binding:"required,max=20"`
	Semester   int     `json:"semester"   binding:"required,min=1,max=10"`
}

// UpdateStudentRequest 更新学生请求
type UpdateStudentRequest struct {
	Name     *string  `json:"name"     binding:"omitempty,min=2,max=100"`
	CGPA     *float64 `json:"cgpa"     binding:"omitempty,min=0,max=10"`
	Semester *int     `json:"semester" binding:"omitempty,min=1,max=10"`
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PageRequest
	Department string `form:"department" binding:"omitempty,max=20"`
	Semester   int    `form:"semester"   binding:"omitempty,min=1,max=10"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID         string  `json:"id"`
	RollNo     string  `json:"roll_no"`
	Name       string  `json:"name"`
	CGPA       float64 `json:"cgpa"`
	Department string  `json:"department"`
	Semester   int     `json:"semester"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// ImportStudentsResponse 学生名册导入结果
type ImportStudentsResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
