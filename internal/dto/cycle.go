package dto

// ── 分配周期模块 DTO ──

// CreateCycleRequest 创建分配周期请求
type CreateCycleRequest struct {
	Department         string `json:"department"          binding:"required,max=20"`
	Semester           int    `json:"semester"            binding:"required,min=1,max=10"`
	Term               string `json:"term"                binding:"required,max=50"`
	MaxChoices         *int   `json:"max_choices"         binding:"omitempty,min=1,max=10"` // 缺省取配置默认值
	SubmissionDeadline string `json:"submission_deadline" binding:"required"`               // RFC3339
}

// UpdateCycleRequest 更新分配周期请求
type UpdateCycleRequest struct {
	MaxChoices         *int    `json:"max_choices"         binding:"omitempty,min=1,max=10"`
	SubmissionDeadline *string `json:"submission_deadline"`
}

// CycleResponse 分配周期响应
type CycleResponse struct {
	ID                 string `json:"id"`
	Department         string `json:"department"`
	Semester           int    `json:"semester"`
	Term               string `json:"term"`
	MaxChoices         int    `json:"max_choices"`
	SubmissionDeadline string `json:"submission_deadline"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}
