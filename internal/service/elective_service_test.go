package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 测试辅助 ──

func setupElectiveFixture() (ElectiveService, *mockElectiveRepo) {
	elect := newMockElectiveRepo()
	prefs := newMockPreferenceListRepo()
	asg := newMockAssignmentRepo()
	repo := &repository.Repository{
		Cycle:          newMockCycleRepo(),
		Student:        newMockStudentRepo(),
		Elective:       elect,
		PreferenceList: prefs,
		AllocationRun:  newMockAllocationRunRepo(asg, prefs),
		Assignment:     asg,
	}
	svc := NewElectiveService(repo, zap.NewNop())
	return svc, elect
}

func createElectiveReq() *dto.CreateElectiveRequest {
	return &dto.CreateElectiveRequest{
		Code:       "CS501",
		Name:       "编译原理",
		Department: "CSE",
		Semester:   5,
		Capacity:   30,
	}
}

// ── CRUD 测试 ──

func TestElectiveService_Create_Success(t *testing.T) {
	svc, _ := setupElectiveFixture()

	e, err := svc.Create(context.Background(), createElectiveReq(), "admin-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if e.Code != "CS501" || e.Capacity != 30 {
		t.Errorf("创建结果不符: %+v", e)
	}
	if !e.IsActive {
		t.Error("新课程应默认启用")
	}
}

func TestElectiveService_Create_ZeroCapacityAllowed(t *testing.T) {
	svc, _ := setupElectiveFixture()

	req := createElectiveReq()
	req.Capacity = 0

	e, err := svc.Create(context.Background(), req, "admin-001")
	if err != nil {
		t.Fatalf("容量 0 的课程应允许创建: %v", err)
	}
	if e.Capacity != 0 {
		t.Errorf("期望容量 0，实际=%d", e.Capacity)
	}
}

func TestElectiveService_Create_DuplicateCode(t *testing.T) {
	svc, _ := setupElectiveFixture()

	if _, err := svc.Create(context.Background(), createElectiveReq(), "admin-001"); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := svc.Create(context.Background(), createElectiveReq(), "admin-001")
	if !errors.Is(err, ErrElectiveCodeExists) {
		t.Errorf("期望 ErrElectiveCodeExists，实际: %v", err)
	}
}

func TestElectiveService_Update_Success(t *testing.T) {
	svc, _ := setupElectiveFixture()

	created, _ := svc.Create(context.Background(), createElectiveReq(), "admin-001")
	capacity := 10
	inactive := false
	updated, err := svc.Update(context.Background(), created.ID, &dto.UpdateElectiveRequest{
		Capacity: &capacity,
		IsActive: &inactive,
	}, "admin-001")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.Capacity != 10 || updated.IsActive {
		t.Errorf("更新结果不符: %+v", updated)
	}
}

func TestElectiveService_Update_NotFound(t *testing.T) {
	svc, _ := setupElectiveFixture()

	capacity := 10
	_, err := svc.Update(context.Background(), "ele-none", &dto.UpdateElectiveRequest{Capacity: &capacity}, "admin-001")
	if !errors.Is(err, ErrElectiveNotFound) {
		t.Errorf("期望 ErrElectiveNotFound，实际: %v", err)
	}
}

func TestElectiveService_Delete_Success(t *testing.T) {
	svc, _ := setupElectiveFixture()

	created, _ := svc.Create(context.Background(), createElectiveReq(), "admin-001")
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), created.ID); !errors.Is(err, ErrElectiveNotFound) {
		t.Errorf("删除后应查不到，实际: %v", err)
	}
}

func TestElectiveService_List_Filtered(t *testing.T) {
	svc, _ := setupElectiveFixture()

	svc.Create(context.Background(), createElectiveReq(), "admin-001")
	other := createElectiveReq()
	other.Code = "EC501"
	other.Department = "ECE"
	svc.Create(context.Background(), other, "admin-001")

	list, total, err := svc.List(context.Background(), &dto.ElectiveListRequest{Department: "CSE"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Department != "CSE" {
		t.Errorf("过滤结果不符: total=%d list=%+v", total, list)
	}
}
