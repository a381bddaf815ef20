package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 志愿模块业务错误 ──

var (
	ErrPreferenceNotFound     = errors.New("志愿表不存在")
	ErrDuplicateElective      = errors.New("志愿中存在重复的选修课")
	ErrTooManyChoices         = errors.New("志愿数量超过周期上限")
	ErrElectiveOutsideCohort  = errors.New("志愿引用了本周期之外的选修课")
	ErrSubmissionDeadlinePast = errors.New("已过志愿提交截止时间")
	ErrPreferenceConsumed     = errors.New("志愿表已被分配运行消费，不可修改")
	ErrStudentOutsideCycle    = errors.New("学生不属于该分配周期")
)

// PreferenceService 志愿业务接口
type PreferenceService interface {
	// Submit 提交或整体覆盖志愿表（截止前可反复提交）
	Submit(ctx context.Context, studentID string, req *dto.SubmitPreferencesRequest) (*dto.PreferenceListResponse, error)
	// GetMine 获取学生在某周期的志愿表
	GetMine(ctx context.Context, studentID string, cycleQ *dto.CycleQuery) (*dto.PreferenceListResponse, error)
}

type preferenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Submit — 提交志愿
// ════════════════════════════════════════════════════════════

func (s *preferenceService) Submit(ctx context.Context, studentID string, req *dto.SubmitPreferencesRequest) (*dto.PreferenceListResponse, error) {
	// 1. 定位周期并检查可提交状态
	cycle, err := s.repo.Cycle.GetByKey(ctx, req.Cycle.Department, req.Cycle.Semester, req.Cycle.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		s.logger.Error("查询分配周期失败", zap.Error(err))
		return nil, err
	}
	if cycle.Status != model.CycleStatusOpen {
		return nil, ErrCycleClosed
	}
	now := time.Now()
	if now.After(cycle.SubmissionDeadline) {
		return nil, ErrSubmissionDeadlinePast
	}

	// 2. 学生必须属于周期的院系+学期群组
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.Department != cycle.Department || student.Semester != cycle.Semester {
		return nil, ErrStudentOutsideCycle
	}

	// 3. 校验志愿内容
	electives, err := s.repo.Elective.ListByCohort(ctx, cycle.Department, cycle.Semester)
	if err != nil {
		s.logger.Error("查询选修课失败", zap.Error(err))
		return nil, err
	}
	cohort := make(map[string]bool, len(electives))
	for _, e := range electives {
		cohort[e.ElectiveID] = true
	}
	if err := validateChoices(req.Choices, cycle.MaxChoices, cohort); err != nil {
		return nil, err
	}

	// 4. 已被运行消费的志愿表不可覆盖
	existing, err := s.repo.PreferenceList.GetByStudentAndCycle(ctx, studentID, cycle.CycleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.ConsumedAt != nil {
		return nil, ErrPreferenceConsumed
	}

	// 5. 整体覆盖提交
	list := &model.PreferenceList{
		StudentID:   studentID,
		CycleID:     cycle.CycleID,
		Choices:     model.StringArray(req.Choices),
		SubmittedAt: now,
	}
	if err := s.repo.PreferenceList.Upsert(ctx, list); err != nil {
		s.logger.Error("保存志愿表失败", zap.Error(err))
		return nil, err
	}

	return s.buildResponse(ctx, list)
}

// ════════════════════════════════════════════════════════════
// GetMine — 获取我的志愿
// ════════════════════════════════════════════════════════════

func (s *preferenceService) GetMine(ctx context.Context, studentID string, cycleQ *dto.CycleQuery) (*dto.PreferenceListResponse, error) {
	cycle, err := s.repo.Cycle.GetByKey(ctx, cycleQ.Department, cycleQ.Semester, cycleQ.Term)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}

	list, err := s.repo.PreferenceList.GetByStudentAndCycle(ctx, studentID, cycle.CycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}

	return s.buildResponse(ctx, list)
}

// ════════════════════════════════════════════════════════════
// 内部辅助
// ════════════════════════════════════════════════════════════

// validateChoices 校验志愿列表：数量上限、无重复、群组归属
// 分配运行在加锁前复用同一校验
func validateChoices(choices []string, maxChoices int, cohort map[string]bool) error {
	if len(choices) > maxChoices {
		return ErrTooManyChoices
	}
	seen := make(map[string]bool, len(choices))
	for _, id := range choices {
		if seen[id] {
			return ErrDuplicateElective
		}
		seen[id] = true
		if !cohort[id] {
			return ErrElectiveOutsideCohort
		}
	}
	return nil
}

func (s *preferenceService) buildResponse(ctx context.Context, list *model.PreferenceList) (*dto.PreferenceListResponse, error) {
	resp := &dto.PreferenceListResponse{
		ID:          list.PreferenceListID,
		StudentID:   list.StudentID,
		CycleID:     list.CycleID,
		SubmittedAt: list.SubmittedAt.Format(time.RFC3339),
		Consumed:    list.ConsumedAt != nil,
		Choices:     make([]dto.PreferenceChoiceResponse, 0, len(list.Choices)),
	}

	for i, electiveID := range list.Choices {
		choice := dto.PreferenceChoiceResponse{
			Rank:       i + 1,
			ElectiveID: electiveID,
		}
		if e, err := s.repo.Elective.GetByID(ctx, electiveID); err == nil {
			choice.ElectiveCode = e.Code
			choice.ElectiveName = e.Name
		}
		resp.Choices = append(resp.Choices, choice)
	}

	return resp, nil
}
