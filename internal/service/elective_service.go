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

// ── 选修课模块业务错误 ──

var (
	ErrElectiveNotFound   = errors.New("选修课不存在")
	ErrElectiveCodeExists = errors.New("选修课编码已存在")
)

// ElectiveService 选修课业务接口
type ElectiveService interface {
	Create(ctx context.Context, req *dto.CreateElectiveRequest, callerID string) (*dto.ElectiveResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ElectiveResponse, error)
	List(ctx context.Context, req *dto.ElectiveListRequest) ([]dto.ElectiveResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateElectiveRequest, callerID string) (*dto.ElectiveResponse, error)
	Delete(ctx context.Context, id string) error
}

type electiveService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewElectiveService 创建 ElectiveService 实例
func NewElectiveService(repo *repository.Repository, logger *zap.Logger) ElectiveService {
	return &electiveService{repo: repo, logger: logger}
}

func (s *electiveService) Create(ctx context.Context, req *dto.CreateElectiveRequest, callerID string) (*dto.ElectiveResponse, error) {
	if _, err := s.repo.Elective.GetByCode(ctx, req.Code); err == nil {
		return nil, ErrElectiveCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	elective := &model.Elective{
		Code:       req.Code,
		Name:       req.Name,
		Department: req.Department,
		Semester:   req.Semester,
		Capacity:   req.Capacity,
		IsActive:   true,
	}
	elective.CreatedBy = &callerID
	elective.UpdatedBy = &callerID

	if err := s.repo.Elective.Create(ctx, elective); err != nil {
		s.logger.Error("创建选修课失败", zap.Error(err))
		return nil, err
	}

	resp := toElectiveResponse(elective)
	return &resp, nil
}

func (s *electiveService) GetByID(ctx context.Context, id string) (*dto.ElectiveResponse, error) {
	elective, err := s.repo.Elective.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectiveNotFound
		}
		return nil, err
	}
	resp := toElectiveResponse(elective)
	return &resp, nil
}

func (s *electiveService) List(ctx context.Context, req *dto.ElectiveListRequest) ([]dto.ElectiveResponse, int64, error) {
	electives, total, err := s.repo.Elective.List(ctx, req.Department, req.Semester, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询选修课列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ElectiveResponse, 0, len(electives))
	for i := range electives {
		result = append(result, toElectiveResponse(&electives[i]))
	}
	return result, total, nil
}

func (s *electiveService) Update(ctx context.Context, id string, req *dto.UpdateElectiveRequest, callerID string) (*dto.ElectiveResponse, error) {
	elective, err := s.repo.Elective.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectiveNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		elective.Name = *req.Name
	}
	if req.Capacity != nil {
		elective.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		elective.IsActive = *req.IsActive
	}
	elective.UpdatedBy = &callerID

	if err := s.repo.Elective.Update(ctx, elective); err != nil {
		s.logger.Error("更新选修课失败", zap.Error(err))
		return nil, err
	}

	resp := toElectiveResponse(elective)
	return &resp, nil
}

func (s *electiveService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Elective.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrElectiveNotFound
		}
		return err
	}

	if err := s.repo.Elective.Delete(ctx, id); err != nil {
		s.logger.Error("删除选修课失败", zap.Error(err))
		return err
	}
	return nil
}

func toElectiveResponse(e *model.Elective) dto.ElectiveResponse {
	return dto.ElectiveResponse{
		ID:         e.ElectiveID,
		Code:       e.Code,
		Name:       e.Name,
		Department: e.Department,
		Semester:   e.Semester,
		Capacity:   e.Capacity,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.Format(time.RFC3339),
	}
}
