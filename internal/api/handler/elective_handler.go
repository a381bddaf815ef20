package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/service"
	"github.com/KirtanKRP/chrono-campus-app/pkg/response"
)

// ElectiveHandler 选修课模块 HTTP 处理器
type ElectiveHandler struct {
	electiveSvc service.ElectiveService
}

// NewElectiveHandler 创建 ElectiveHandler
func NewElectiveHandler(electiveSvc service.ElectiveService) *ElectiveHandler {
	return &ElectiveHandler{electiveSvc: electiveSvc}
}

// CreateElective 创建选修课（管理员）
// POST /api/v1/electives
func (h *ElectiveHandler) CreateElective(c *gin.Context) {
	var req dto.CreateElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	elective, err := h.electiveSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.Created(c, elective)
}

// GetElective 获取选修课详情
// GET /api/v1/electives/:id
func (h *ElectiveHandler) GetElective(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选修课ID不能为空")
		return
	}

	elective, err := h.electiveSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, elective)
}

// ListElectives 获取选修课列表
// GET /api/v1/electives
func (h *ElectiveHandler) ListElectives(c *gin.Context) {
	var req dto.ElectiveListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	electives, total, err := h.electiveSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, electives, total, req.GetPage(), req.GetPageSize())
}

// UpdateElective 更新选修课（管理员）
// PATCH /api/v1/electives/:id
func (h *ElectiveHandler) UpdateElective(c *gin.Context) {
	id := c.Param("id")
	var req dto.UpdateElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	elective, err := h.electiveSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, elective)
}

// DeleteElective 删除选修课（管理员）
// DELETE /api/v1/electives/:id
func (h *ElectiveHandler) DeleteElective(c *gin.Context) {
	id := c.Param("id")

	if err := h.electiveSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleElectiveError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *ElectiveHandler) handleElectiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrElectiveNotFound):
		response.NotFound(c, 13001, "选修课不存在")
	case errors.Is(err, service.ErrElectiveCodeExists):
		response.Conflict(c, 13002, "选修课编码已存在")
	default:
		response.InternalError(c)
	}
}
