package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/service"
	"github.com/KirtanKRP/chrono-campus-app/pkg/response"
)

// CycleHandler 分配周期模块 HTTP 处理器
type CycleHandler struct {
	cycleSvc service.CycleService
}

// NewCycleHandler 创建 CycleHandler
func NewCycleHandler(cycleSvc service.CycleService) *CycleHandler {
	return &CycleHandler{cycleSvc: cycleSvc}
}

// CreateCycle 创建分配周期（管理员）
// POST /api/v1/cycles
func (h *CycleHandler) CreateCycle(c *gin.Context) {
	var req dto.CreateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.Created(c, cycle)
}

// GetCycle 获取周期详情
// GET /api/v1/cycles/:id
func (h *CycleHandler) GetCycle(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "周期ID不能为空")
		return
	}

	cycle, err := h.cycleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// ListCycles 获取周期列表
// GET /api/v1/cycles
func (h *CycleHandler) ListCycles(c *gin.Context) {
	var page dto.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	cycles, total, err := h.cycleSvc.List(c.Request.Context(), page.GetOffset(), page.GetPageSize())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, cycles, total, page.GetPage(), page.GetPageSize())
}

// UpdateCycle 更新周期（管理员）
// PATCH /api/v1/cycles/:id
func (h *CycleHandler) UpdateCycle(c *gin.Context) {
	id := c.Param("id")
	var req dto.UpdateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// CloseCycle 关闭周期（管理员）
// POST /api/v1/cycles/:id/close
func (h *CycleHandler) CloseCycle(c *gin.Context) {
	id := c.Param("id")

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Close(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// GetCycleCalendar 周期关键时间点的 iCalendar 订阅
// GET /api/v1/cycles/:id/calendar.ics
func (h *CycleHandler) GetCycleCalendar(c *gin.Context) {
	id := c.Param("id")

	ics, err := h.cycleSvc.BuildCalendar(c.Request.Context(), id)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="cycle.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func (h *CycleHandler) handleCycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		response.NotFound(c, 11001, "分配周期不存在")
	case errors.Is(err, service.ErrCycleAlreadyExists):
		response.Conflict(c, 11002, "该院系+学期+学年期次已存在分配周期")
	case errors.Is(err, service.ErrCycleClosed):
		response.BadRequest(c, 11003, "分配周期已关闭")
	case errors.Is(err, service.ErrInvalidDeadline):
		response.BadRequest(c, 11004, "提交截止时间格式无效")
	default:
		response.InternalError(c)
	}
}
