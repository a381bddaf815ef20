package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoResult     = errors.New("该周期暂无可导出的分配结果")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出周期最近一次完成运行的分配结果为 Excel (.xlsx)
//   - Sheet "分配结果"：逐学生一行，含志愿顺位
//   - Sheet "课程统计"：逐课程容量、录取数与填充率
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAllocationResult 导出分配结果为 Excel
	ExportAllocationResult(ctx context.Context, cycleQ *dto.CycleQuery) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAllocationResult — 导出分配结果为 Excel
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAllocationResult(ctx context.Context, cycleQ *dto.CycleQuery) (*bytes.Buffer, string, error) {
	// 1. 定位周期与最近完成的运行
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCycleNotFound
		}
		s.logger.Error("查询分配周期失败", zap.Error(err))
		return nil, "", err
	}
	run, err := s.repo.AllocationRun.GetLatestCompletedByCycle(ctx, cycle.CycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrExportNoResult
		}
		s.logger.Error("查询运行记录失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 加载分配结果（含学生、课程关联）
	assignments, err := s.repo.Assignment.ListByRun(ctx, run.RunID)
	if err != nil {
		s.logger.Error("查询分配结果失败", zap.Error(err))
		return nil, "", err
	}
	if len(assignments) == 0 {
		return nil, "", ErrExportNoResult
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	resultSheet := "分配结果"
	idx, err := f.NewSheet(resultSheet)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(resultSheet, "A", "A", 16)
	f.SetColWidth(resultSheet, "B", "B", 20)
	f.SetColWidth(resultSheet, "C", "C", 8)
	f.SetColWidth(resultSheet, "D", "D", 14)
	f.SetColWidth(resultSheet, "E", "E", 30)
	f.SetColWidth(resultSheet, "F", "F", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("%s 第%d学期 %s — 选修课分配结果", cycle.Department, cycle.Semester, cycle.Term)
	f.SetCellValue(resultSheet, "A1", title)
	f.MergeCell(resultSheet, "A1", "F1")
	f.SetCellStyle(resultSheet, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"学号", "姓名", "CGPA", "课程代码", "课程名称", "志愿顺位"}
	for i, h := range headers {
		f.SetCellValue(resultSheet, cell(colName(i), 2), h)
		f.SetCellStyle(resultSheet, cell(colName(i), 2), cell(colName(i), 2), headerStyle)
	}

	// 数据行（查询已按 student_id 排序）
	row := 3
	for i := range assignments {
		a := &assignments[i]
		if a.Student != nil {
			f.SetCellValue(resultSheet, cell("A", row), a.Student.RollNo)
			f.SetCellValue(resultSheet, cell("B", row), a.Student.Name)
			f.SetCellValue(resultSheet, cell("C", row), a.Student.CGPA)
		}
		if a.Elective != nil {
			f.SetCellValue(resultSheet, cell("D", row), a.Elective.Code)
			f.SetCellValue(resultSheet, cell("E", row), a.Elective.Name)
			f.SetCellValue(resultSheet, cell("F", row), a.RankSatisfied)
		} else {
			f.SetCellValue(resultSheet, cell("D", row), "-")
			f.SetCellValue(resultSheet, cell("E", row), "未分配")
			f.SetCellValue(resultSheet, cell("F", row), "-")
		}
		row++
	}

	// 4. 课程统计 Sheet（来自运行汇总快照）
	if len(run.Summary) > 0 {
		var summary dto.AllocationSummary
		if err := json.Unmarshal(run.Summary, &summary); err == nil {
			statsSheet := "课程统计"
			if _, err := f.NewSheet(statsSheet); err == nil {
				f.SetColWidth(statsSheet, "A", "A", 14)
				f.SetColWidth(statsSheet, "B", "D", 10)

				statsHeaders := []string{"课程代码", "容量", "录取数", "填充率"}
				for i, h := range statsHeaders {
					f.SetCellValue(statsSheet, cell(colName(i), 1), h)
					f.SetCellStyle(statsSheet, cell(colName(i), 1), cell(colName(i), 1), headerStyle)
				}
				srow := 2
				for _, pe := range summary.PerElectiveFill {
					f.SetCellValue(statsSheet, cell("A", srow), pe.ElectiveCode)
					f.SetCellValue(statsSheet, cell("B", srow), pe.Capacity)
					f.SetCellValue(statsSheet, cell("C", srow), pe.Filled)
					f.SetCellValue(statsSheet, cell("D", srow), fmt.Sprintf("%.0f%%", pe.FillRatio*100))
					srow++
				}
			}
		}
	}

	// 5. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("分配结果_%s_%d_%s.xlsx", cycle.Department, cycle.Semester, cycle.Term)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
