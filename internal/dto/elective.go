package dto

// ── 选修课模块 DTO ──

// CreateElectiveRequest 创建选修课请求
type CreateElectiveRequest struct {
	Code       string `json:"code"       binding:"required,max=30"`
	Name       string `json:"name"       binding:"required,min=2,max=150"`
	Department string `json:"department" binding:"required,max=20"`
	Semester   int    `json:"semester"   binding:"required,min=1,max=10"`
	Capacity   int    `json:"capacity"   binding:"min=0"`
}

// UpdateElectiveRequest 更新选修课请求
type UpdateElectiveRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=2,max=150"`
	Capacity *int    `json:"capacity"  binding:"omitempty,min=0"`
	IsActive *bool   `json:"is_active"`
}

// ElectiveListRequest 选修课列表查询参数
type ElectiveListRequest struct {
	PageRequest
	Department string `form:"department" binding:"omitempty,max=20"`
	Semester   int    `form:"semester"   binding:"omitempty,min=1,max=10"`
}

// ElectiveResponse 选修课信息响应
type ElectiveResponse struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Semester   int    `json:"semester"`
	Capacity   int    `json:"capacity"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}
