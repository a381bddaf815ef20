package dto

// ── 志愿模块 DTO ──

// SubmitPreferencesRequest 提交志愿请求
// choices 为有序 elective_id 列表，第 1 个即第一志愿；截止前可整体覆盖
type SubmitPreferencesRequest struct {
	Cycle   CycleQuery `json:"cycle"   binding:"required"`
	Choices []string   `json:"choices" binding:"required,dive,uuid"`
}

// PreferenceChoiceResponse 单条志愿响应
type PreferenceChoiceResponse struct {
	Rank         int    `json:"rank"`
	ElectiveID   string `json:"elective_id"`
	ElectiveCode string `json:"elective_code,omitempty"`
	ElectiveName string `json:"elective_name,omitempty"`
}

// PreferenceListResponse 志愿表响应
type PreferenceListResponse struct {
	ID          string                     `json:"id"`
	StudentID   string                     `json:"student_id"`
	CycleID     string                     `json:"cycle_id"`
	Choices     []PreferenceChoiceResponse `json:"choices"`
	SubmittedAt string                     `json:"submitted_at"`
	Consumed    bool                       `json:"consumed"`
}
