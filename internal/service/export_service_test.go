package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── ExportAllocationResult 测试 ──

func TestExportService_ExportAllocationResult_Success(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	if _, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001"); err != nil {
		t.Fatalf("分配运行应成功: %v", err)
	}

	exportSvc := NewExportService(f.repo, zap.NewNop())
	buf, filename, err := exportSvc.ExportAllocationResult(context.Background(), &testCycleQuery)
	if err != nil {
		t.Fatalf("导出应成功: %v", err)
	}
	if filename != "分配结果_CSE_5_2026-monsoon.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	// 回读 Excel 验证内容
	xf, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容应为合法 Excel: %v", err)
	}
	defer xf.Close()

	rows, err := xf.GetRows("分配结果")
	if err != nil {
		t.Fatalf("读取分配结果 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 3 名学生
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际=%d", len(rows))
	}
	// 第一条数据行应为 CGPA 最高的甲，录取 CS501
	if rows[2][0] != "CSE001" || rows[2][3] != "CS501" {
		t.Errorf("首行数据不符: %v", rows[2])
	}

	stats, err := xf.GetRows("课程统计")
	if err != nil {
		t.Fatalf("读取课程统计 Sheet 失败: %v", err)
	}
	// 表头 + 2 门课
	if len(stats) != 3 {
		t.Errorf("期望 3 行统计，实际=%d", len(stats))
	}
}

func TestExportService_ExportAllocationResult_NoCompletedRun(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	exportSvc := NewExportService(f.repo, zap.NewNop())
	_, _, err := exportSvc.ExportAllocationResult(context.Background(), &testCycleQuery)
	if !errors.Is(err, ErrExportNoResult) {
		t.Errorf("期望 ErrExportNoResult，实际: %v", err)
	}
}

func TestExportService_ExportAllocationResult_CycleNotFound(t *testing.T) {
	f := setupAllocationFixture()

	exportSvc := NewExportService(f.repo, zap.NewNop())
	_, _, err := exportSvc.ExportAllocationResult(context.Background(), &testCycleQuery)
	if !errors.Is(err, ErrCycleNotFound) {
		t.Errorf("期望 ErrCycleNotFound，实际: %v", err)
	}
}
