package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/service"
	"github.com/KirtanKRP/chrono-campus-app/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAllocationResult 导出分配结果
// GET /api/v1/export/allocation-result?department=CSE&semester=5&term=2026-Odd
func (h *ExportHandler) ExportAllocationResult(c *gin.Context) {
	var cycleQ dto.CycleQuery
	if err := c.ShouldBindQuery(&cycleQ); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportAllocationResult(c.Request.Context(), &cycleQ)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		response.NotFound(c, 11001, "分配周期不存在")
	case errors.Is(err, service.ErrExportNoResult):
		response.NotFound(c, 16001, "该周期暂无可导出的分配结果")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
