package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/service"
	"github.com/KirtanKRP/chrono-campus-app/pkg/response"
)

// PreferenceHandler 志愿模块 HTTP 处理器
type PreferenceHandler struct {
	prefSvc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(prefSvc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefSvc: prefSvc}
}

// SubmitPreferences 提交或整体覆盖志愿表（学生本人）
// PUT /api/v1/preferences
func (h *PreferenceHandler) SubmitPreferences(c *gin.Context) {
	var req dto.SubmitPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.prefSvc.Submit(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, list)
}

// GetMyPreferences 获取我在某周期的志愿表（学生本人）
// GET /api/v1/preferences/me?department=CSE&semester=5&term=2026-Odd
func (h *PreferenceHandler) GetMyPreferences(c *gin.Context) {
	var cycleQ dto.CycleQuery
	if err := c.ShouldBindQuery(&cycleQ); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.prefSvc.GetMine(c.Request.Context(), studentID, &cycleQ)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}

	response.OK(c, list)
}

func (h *PreferenceHandler) handlePreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		response.NotFound(c, 11001, "分配周期不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 12001, "学生不存在")
	case errors.Is(err, service.ErrPreferenceNotFound):
		response.NotFound(c, 14001, "志愿表不存在")
	case errors.Is(err, service.ErrCycleClosed):
		response.BadRequest(c, 14002, "分配周期已关闭")
	case errors.Is(err, service.ErrSubmissionDeadlinePast):
		response.BadRequest(c, 14003, "已过志愿提交截止时间")
	case errors.Is(err, service.ErrTooManyChoices):
		response.BadRequest(c, 14004, "志愿数量超过周期上限")
	case errors.Is(err, service.ErrDuplicateElective):
		response.BadRequest(c, 14005, "志愿中存在重复的选修课")
	case errors.Is(err, service.ErrElectiveOutsideCohort):
		response.BadRequest(c, 14006, "志愿引用了本周期之外的选修课")
	case errors.Is(err, service.ErrPreferenceConsumed):
		response.Conflict(c, 14007, "志愿表已被分配运行消费，不可修改")
	case errors.Is(err, service.ErrStudentOutsideCycle):
		response.Forbidden(c, 14008, "学生不属于该分配周期")
	default:
		response.InternalError(c)
	}
}
