package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/config"
	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 分配周期模块业务错误 ──

var (
	ErrCycleNotFound      = errors.New("分配周期不存在")
	ErrCycleClosed        = errors.New("分配周期已关闭")
	ErrCycleAlreadyExists = errors.New("该院系+学期+学年期次已存在分配周期")
	ErrInvalidDeadline    = errors.New("提交截止时间格式无效")
)

// CycleService 分配周期业务接口
type CycleService interface {
	Create(ctx context.Context, req *dto.CreateCycleRequest, callerID string) (*dto.CycleResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CycleResponse, error)
	List(ctx context.Context, offset, limit int) ([]dto.CycleResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateCycleRequest, callerID string) (*dto.CycleResponse, error)
	// Close 关闭周期，之后不再接受志愿提交
	Close(ctx context.Context, id string, callerID string) (*dto.CycleResponse, error)
	// BuildCalendar 生成周期关键时间点的 iCalendar 订阅（RFC 5545）
	BuildCalendar(ctx context.Context, id string) (string, error)
}

type cycleService struct {
	cfg    *config.AllocationConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCycleService 创建 CycleService 实例
func NewCycleService(cfg *config.AllocationConfig, repo *repository.Repository, logger *zap.Logger) CycleService {
	return &cycleService{cfg: cfg, repo: repo, logger: logger}
}

func (s *cycleService) Create(ctx context.Context, req *dto.CreateCycleRequest, callerID string) (*dto.CycleResponse, error) {
	// 同一 (department, semester, term) 只允许一个周期
	if _, err := s.repo.Cycle.GetByKey(ctx, req.Department, req.Semester, req.Term); err == nil {
		return nil, ErrCycleAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	deadline, err := time.Parse(time.RFC3339, req.SubmissionDeadline)
	if err != nil {
		return nil, ErrInvalidDeadline
	}

	maxChoices := s.cfg.DefaultMaxChoices
	if req.MaxChoices != nil {
		maxChoices = *req.MaxChoices
	}

	cycle := &model.AllocationCycle{
		Department:         req.Department,
		Semester:           req.Semester,
		Term:               req.Term,
		MaxChoices:         maxChoices,
		SubmissionDeadline: deadline,
		Status:             model.CycleStatusOpen,
	}
	cycle.CreatedBy = &callerID
	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Create(ctx, cycle); err != nil {
		s.logger.Error("创建分配周期失败", zap.Error(err))
		return nil, err
	}

	resp := toCycleResponse(cycle)
	return &resp, nil
}

func (s *cycleService) GetByID(ctx context.Context, id string) (*dto.CycleResponse, error) {
	cycle, err := s.repo.Cycle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	resp := toCycleResponse(cycle)
	return &resp, nil
}

func (s *cycleService) List(ctx context.Context, offset, limit int) ([]dto.CycleResponse, int64, error) {
	cycles, total, err := s.repo.Cycle.List(ctx, offset, limit)
	if err != nil {
		s.logger.Error("查询分配周期列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CycleResponse, 0, len(cycles))
	for i := range cycles {
		result = append(result, toCycleResponse(&cycles[i]))
	}
	return result, total, nil
}

func (s *cycleService) Update(ctx context.Context, id string, req *dto.UpdateCycleRequest, callerID string) (*dto.CycleResponse, error) {
	cycle, err := s.repo.Cycle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status != model.CycleStatusOpen {
		return nil, ErrCycleClosed
	}

	if req.MaxChoices != nil {
		cycle.MaxChoices = *req.MaxChoices
	}
	if req.SubmissionDeadline != nil {
		deadline, err := time.Parse(time.RFC3339, *req.SubmissionDeadline)
		if err != nil {
			return nil, ErrInvalidDeadline
		}
		cycle.SubmissionDeadline = deadline
	}
	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Update(ctx, cycle); err != nil {
		s.logger.Error("更新分配周期失败", zap.Error(err))
		return nil, err
	}

	resp := toCycleResponse(cycle)
	return &resp, nil
}

func (s *cycleService) Close(ctx context.Context, id string, callerID string) (*dto.CycleResponse, error) {
	cycle, err := s.repo.Cycle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	if cycle.Status == model.CycleStatusClosed {
		return nil, ErrCycleClosed
	}

	cycle.Status = model.CycleStatusClosed
	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Update(ctx, cycle); err != nil {
		s.logger.Error("关闭分配周期失败", zap.Error(err))
		return nil, err
	}

	resp := toCycleResponse(cycle)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// BuildCalendar — 周期关键时间点的 ICS 订阅
// ════════════════════════════════════════════════════════════
//
// 事件：志愿提交截止；若已有完成的分配运行，追加结果发布事件

func (s *cycleService) BuildCalendar(ctx context.Context, id string) (string, error) {
	cycle, err := s.repo.Cycle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCycleNotFound
		}
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//chrono-campus-app//elective-allocation//EN")

	label := fmt.Sprintf("%s 第%d学期 %s", cycle.Department, cycle.Semester, cycle.Term)

	deadline := cal.AddEvent(fmt.Sprintf("deadline-%s@campus-hub", cycle.CycleID))
	deadline.SetSummary(fmt.Sprintf("选课志愿提交截止 — %s", label))
	deadline.SetStartAt(cycle.SubmissionDeadline)
	deadline.SetEndAt(cycle.SubmissionDeadline)
	deadline.SetDtStampTime(time.Now())

	if run, err := s.repo.AllocationRun.GetLatestCompletedByCycle(ctx, cycle.CycleID); err == nil && run.FinishedAt != nil {
		published := cal.AddEvent(fmt.Sprintf("result-%s@campus-hub", run.RunID))
		published.SetSummary(fmt.Sprintf("选课分配结果发布 — %s", label))
		published.SetStartAt(*run.FinishedAt)
		published.SetEndAt(*run.FinishedAt)
		published.SetDtStampTime(time.Now())
	}

	return cal.Serialize(), nil
}

func toCycleResponse(cycle *model.AllocationCycle) dto.CycleResponse {
	return dto.CycleResponse{
		ID:                 cycle.CycleID,
		Department:         cycle.Department,
		Semester:           cycle.Semester,
		Term:               cycle.Term,
		MaxChoices:         cycle.MaxChoices,
		SubmissionDeadline: cycle.SubmissionDeadline.Format(time.RFC3339),
		Status:             cycle.Status,
		CreatedAt:          cycle.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          cycle.UpdatedAt.Format(time.RFC3339),
	}
}
