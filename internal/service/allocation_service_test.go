package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KirtanKRP/chrono-campus-app/config"
	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 测试辅助 ──

type allocationFixture struct {
	svc      AllocationService
	repo     *repository.Repository
	cycles   *mockCycleRepo
	students *mockStudentRepo
	elect    *mockElectiveRepo
	prefs    *mockPreferenceListRepo
	runs     *mockAllocationRunRepo
	asg      *mockAssignmentRepo
	locker   *localCycleLocker
}

func setupAllocationFixture() *allocationFixture {
	cycles := newMockCycleRepo()
	students := newMockStudentRepo()
	elect := newMockElectiveRepo()
	prefs := newMockPreferenceListRepo()
	asg := newMockAssignmentRepo()
	asg.students = students
	asg.electives = elect
	runs := newMockAllocationRunRepo(asg, prefs)

	repo := &repository.Repository{
		Cycle:          cycles,
		Student:        students,
		Elective:       elect,
		PreferenceList: prefs,
		AllocationRun:  runs,
		Assignment:     asg,
	}
	cfg := &config.Config{
		Allocation: config.AllocationConfig{
			DefaultMaxChoices: 5,
			LockTTL:           time.Minute,
		},
	}
	locker := newLocalCycleLocker()
	svc := NewAllocationService(cfg, repo, locker, zap.NewNop())

	return &allocationFixture{
		svc: svc, repo: repo,
		cycles: cycles, students: students, elect: elect,
		prefs: prefs, runs: runs, asg: asg, locker: locker,
	}
}

var testCycleQuery = dto.CycleQuery{Department: "CSE", Semester: 5, Term: "2026-monsoon"}

// seedCohort 构造一个标准测试群组：
// 周期 CSE/5/2026-monsoon，课程 X(容量1) Y(容量2)，学生 a(9.0) b(8.0) c(7.5)
// a b c 都提交 [X, Y]
func (f *allocationFixture) seedCohort(t *testing.T) *model.AllocationCycle {
	t.Helper()
	ctx := context.Background()

	cycle := &model.AllocationCycle{
		Department:         "CSE",
		Semester:           5,
		Term:               "2026-monsoon",
		MaxChoices:         5,
		SubmissionDeadline: time.Now().Add(24 * time.Hour),
		Status:             model.CycleStatusOpen,
	}
	if err := f.cycles.Create(ctx, cycle); err != nil {
		t.Fatalf("构造周期失败: %v", err)
	}

	for _, s := range []*model.Student{
		{StudentID: "stu-a", RollNo: "CSE001", Name: "甲", CGPA: 9.0, Department: "CSE", Semester: 5},
		{StudentID: "stu-b", RollNo: "CSE002", Name: "乙", CGPA: 8.0, Department: "CSE", Semester: 5},
		{StudentID: "stu-c", RollNo: "CSE003", Name: "丙", CGPA: 7.5, Department: "CSE", Semester: 5},
	} {
		if err := f.students.Create(ctx, s); err != nil {
			t.Fatalf("构造学生失败: %v", err)
		}
	}

	for _, e := range []*model.Elective{
		{ElectiveID: "ele-x", Code: "CS501", Name: "编译原理", Department: "CSE", Semester: 5, Capacity: 1, IsActive: true},
		{ElectiveID: "ele-y", Code: "CS502", Name: "分布式系统", Department: "CSE", Semester: 5, Capacity: 2, IsActive: true},
	} {
		if err := f.elect.Create(ctx, e); err != nil {
			t.Fatalf("构造课程失败: %v", err)
		}
	}

	for _, sid := range []string{"stu-a", "stu-b", "stu-c"} {
		list := &model.PreferenceList{
			StudentID:   sid,
			CycleID:     cycle.CycleID,
			Choices:     model.StringArray{"ele-x", "ele-y"},
			SubmittedAt: time.Now(),
		}
		if err := f.prefs.Upsert(ctx, list); err != nil {
			t.Fatalf("构造志愿失败: %v", err)
		}
	}

	return cycle
}

// ── RunAllocation 测试 ──

func TestAllocationService_RunAllocation_Success(t *testing.T) {
	f := setupAllocationFixture()
	cycle := f.seedCohort(t)

	resp, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("RunAllocation 应成功: %v", err)
	}
	if resp.Status != model.RunStatusCompleted {
		t.Fatalf("期望状态 completed，实际=%s（error=%s）", resp.Status, resp.Error)
	}
	if resp.Summary == nil {
		t.Fatal("期望返回运行汇总")
	}
	if resp.Summary.TotalStudents != 3 || resp.Summary.Allocated != 3 || resp.Summary.Unallocated != 0 {
		t.Errorf("汇总不符: %+v", resp.Summary)
	}

	// 运行记录落库且状态为 completed
	run, err := f.runs.GetByID(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("运行记录应存在: %v", err)
	}
	if run.Status != model.RunStatusCompleted {
		t.Errorf("期望运行状态 completed，实际=%s", run.Status)
	}
	if run.FinishedAt == nil {
		t.Error("完成的运行应有 finished_at")
	}
	if len(run.InputSnapshot) == 0 {
		t.Error("运行应保存输入快照")
	}

	// 每个学生恰好一行分配结果
	assignments, _ := f.asg.ListByRun(context.Background(), resp.RunID)
	if len(assignments) != 3 {
		t.Fatalf("期望 3 行分配结果，实际=%d", len(assignments))
	}

	// 志愿表被锁定
	for _, sid := range []string{"stu-a", "stu-b", "stu-c"} {
		list, _ := f.prefs.GetByStudentAndCycle(context.Background(), sid, cycle.CycleID)
		if list.ConsumedAt == nil {
			t.Errorf("学生 %s 的志愿表应被标记消费", sid)
		}
	}
}

func TestAllocationService_RunAllocation_NonSubmitterExplicitlyUnallocated(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)
	// 第 4 名学生未提交志愿
	f.students.Create(context.Background(), &model.Student{
		StudentID: "stu-d", RollNo: "CSE004", Name: "丁", CGPA: 9.9, Department: "CSE", Semester: 5,
	})

	resp, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("RunAllocation 应成功: %v", err)
	}
	if resp.Summary.TotalStudents != 4 || resp.Summary.Unallocated != 1 {
		t.Fatalf("汇总不符: %+v", resp.Summary)
	}

	a, err := f.asg.GetByRunAndStudent(context.Background(), resp.RunID, "stu-d")
	if err != nil {
		t.Fatalf("未提交志愿的学生也应有显式结果行: %v", err)
	}
	if a.ElectiveID != nil {
		t.Errorf("期望 elective_id 为 NULL，实际=%v", *a.ElectiveID)
	}
	if a.RankSatisfied != 0 {
		t.Errorf("期望 rank_satisfied=0，实际=%d", a.RankSatisfied)
	}
}

func TestAllocationService_RunAllocation_CycleNotFound(t *testing.T) {
	f := setupAllocationFixture()

	_, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if !errors.Is(err, ErrCycleNotFound) {
		t.Errorf("期望 ErrCycleNotFound，实际: %v", err)
	}
}

func TestAllocationService_RunAllocation_ConcurrentRunRejected(t *testing.T) {
	f := setupAllocationFixture()
	cycle := f.seedCohort(t)

	// 模拟同周期已有运行持有锁
	key := cycleLockKey(cycle)
	if _, ok, _ := f.locker.AcquireLock(context.Background(), key, time.Minute); !ok {
		t.Fatal("预占锁失败")
	}

	_, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if !errors.Is(err, ErrConcurrentRun) {
		t.Fatalf("期望 ErrConcurrentRun，实际: %v", err)
	}

	// 被拒的调用不应留下任何运行记录
	_, total, _ := f.runs.ListByCycle(context.Background(), cycle.CycleID, 0, 10)
	if total != 0 {
		t.Errorf("并发拒绝不应创建运行记录，实际=%d", total)
	}
}

func TestAllocationService_RunAllocation_LockReleasedAfterRun(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	if _, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001"); err != nil {
		t.Fatalf("第一次运行应成功: %v", err)
	}
	// 锁已释放，立即重跑应被允许
	resp, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("第二次运行应成功: %v", err)
	}
	if resp.Status != model.RunStatusCompleted {
		t.Errorf("期望第二次运行 completed，实际=%s", resp.Status)
	}
}

func TestAllocationService_RunAllocation_ValidationBeforeLock(t *testing.T) {
	f := setupAllocationFixture()
	cycle := f.seedCohort(t)

	// 某学生志愿数超上限
	cycle.MaxChoices = 1

	_, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if !errors.Is(err, ErrTooManyChoices) {
		t.Fatalf("期望 ErrTooManyChoices，实际: %v", err)
	}

	// 校验失败不创建运行记录、不持有锁
	_, total, _ := f.runs.ListByCycle(context.Background(), cycle.CycleID, 0, 10)
	if total != 0 {
		t.Errorf("校验失败不应创建运行记录，实际=%d", total)
	}
	if _, ok, _ := f.locker.AcquireLock(context.Background(), cycleLockKey(cycle), time.Minute); !ok {
		t.Error("校验失败后锁应未被持有")
	}
}

func TestAllocationService_RunAllocation_NegativeCapacityMarksFailed(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)
	e, _ := f.elect.GetByID(context.Background(), "ele-x")
	e.Capacity = -1

	resp, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("失败的运行应返回响应而非错误: %v", err)
	}
	if resp.Status != model.RunStatusFailed {
		t.Fatalf("期望状态 failed，实际=%s", resp.Status)
	}
	if resp.Error != model.ErrorKindCapacity {
		t.Errorf("期望错误类别 %s，实际=%s", model.ErrorKindCapacity, resp.Error)
	}

	run, _ := f.runs.GetByID(context.Background(), resp.RunID)
	if run.Status != model.RunStatusFailed || run.ErrorKind == nil || *run.ErrorKind != model.ErrorKindCapacity {
		t.Errorf("运行记录应标记失败类别: %+v", run)
	}
	// 失败运行不产生任何可见分配结果
	assignments, _ := f.asg.ListByRun(context.Background(), resp.RunID)
	if len(assignments) != 0 {
		t.Errorf("失败运行不应有分配结果，实际=%d", len(assignments))
	}
}

func TestAllocationService_RunAllocation_PersistFailureMarksFailed(t *testing.T) {
	f := setupAllocationFixture()
	cycle := f.seedCohort(t)
	f.runs.failCommit = true

	resp, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("失败的运行应返回响应而非错误: %v", err)
	}
	if resp.Status != model.RunStatusFailed || resp.Error != model.ErrorKindPersistence {
		t.Fatalf("期望 failed/PersistenceError，实际=%s/%s", resp.Status, resp.Error)
	}

	// 提交失败后不留下部分结果：志愿表未被消费
	for _, sid := range []string{"stu-a", "stu-b", "stu-c"} {
		list, _ := f.prefs.GetByStudentAndCycle(context.Background(), sid, cycle.CycleID)
		if list.ConsumedAt != nil {
			t.Errorf("提交失败时学生 %s 的志愿表不应被消费", sid)
		}
	}
	assignments, _ := f.asg.ListByRun(context.Background(), resp.RunID)
	if len(assignments) != 0 {
		t.Errorf("提交失败时不应有分配结果，实际=%d", len(assignments))
	}
}

// ── GetResult / GetMyResult 测试 ──

func TestAllocationService_GetResult_LatestRunWins(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	first, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("第一次运行应成功: %v", err)
	}
	second, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001")
	if err != nil {
		t.Fatalf("第二次运行应成功: %v", err)
	}

	result, err := f.svc.GetResult(context.Background(), &testCycleQuery)
	if err != nil {
		t.Fatalf("GetResult 应成功: %v", err)
	}
	if result.RunID != second.RunID {
		t.Errorf("期望返回最新运行 %s，实际=%s（首次=%s）", second.RunID, result.RunID, first.RunID)
	}
	if len(result.Assignments) != 3 {
		t.Errorf("期望 3 行结果，实际=%d", len(result.Assignments))
	}
}

func TestAllocationService_GetResult_NoCompletedRun(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	_, err := f.svc.GetResult(context.Background(), &testCycleQuery)
	if !errors.Is(err, ErrNoCompletedRun) {
		t.Errorf("期望 ErrNoCompletedRun，实际: %v", err)
	}
}

func TestAllocationService_GetMyResult(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	if _, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001"); err != nil {
		t.Fatalf("运行应成功: %v", err)
	}

	mine, err := f.svc.GetMyResult(context.Background(), &testCycleQuery, "stu-a")
	if err != nil {
		t.Fatalf("GetMyResult 应成功: %v", err)
	}
	if mine.ElectiveID == nil || *mine.ElectiveID != "ele-x" {
		t.Errorf("期望 stu-a 录取 ele-x，实际=%v", mine.ElectiveID)
	}
	if mine.RankSatisfied != 1 {
		t.Errorf("期望 rank=1，实际=%d", mine.RankSatisfied)
	}
}

// ── 运行审计 ──

func TestAllocationService_ListRuns(t *testing.T) {
	f := setupAllocationFixture()
	f.seedCohort(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.RunAllocation(context.Background(), &testCycleQuery, "admin-001"); err != nil {
			t.Fatalf("运行应成功: %v", err)
		}
	}

	runs, total, err := f.svc.ListRuns(context.Background(), &testCycleQuery, 0, 10)
	if err != nil {
		t.Fatalf("ListRuns 应成功: %v", err)
	}
	if total != 3 || len(runs) != 3 {
		t.Errorf("期望 3 次运行，实际 total=%d len=%d", total, len(runs))
	}
}

func TestAllocationService_GetRun_NotFound(t *testing.T) {
	f := setupAllocationFixture()

	_, err := f.svc.GetRun(context.Background(), "run-none")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("期望 ErrRunNotFound，实际: %v", err)
	}
}
