package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
	"github.com/KirtanKRP/chrono-campus-app/internal/model"
	"github.com/KirtanKRP/chrono-campus-app/internal/repository"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound   = errors.New("学生不存在")
	ErrRollNoExists      = errors.New("学号已存在")
	ErrImportEmptyFile   = errors.New("导入文件为空或无数据行")
	ErrImportInvalidFile = errors.New("无法解析Excel文件")
)

// StudentService 学生业务接口
type StudentService interface {
	Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StudentResponse, error)
	List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id string) error
	// ImportRoster 从 Excel 名册批量导入学生
	ImportRoster(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportStudentsResponse, error)
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	if _, err := s.repo.Student.GetByRollNo(ctx, req.RollNo); err == nil {
		return nil, ErrRollNoExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student := &model.Student{
		RollNo:     req.RollNo,
		Name:       req.Name,
		CGPA:       req.CGPA,
		Department: req.Department,
		Semester:   req.Semester,
	}
	student.CreatedBy = &callerID
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}

	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	students, total, err := s.repo.Student.List(ctx, req.Department, req.Semester, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学生列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, toStudentResponse(&students[i]))
	}
	return result, total, nil
}

func (s *studentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.CGPA != nil {
		student.CGPA = *req.CGPA
	}
	if req.Semester != nil {
		student.Semester = *req.Semester
	}
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("更新学生失败", zap.Error(err))
		return nil, err
	}

	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	if err := s.repo.Student.Delete(ctx, id); err != nil {
		s.logger.Error("删除学生失败", zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// ImportRoster — Excel 名册批量导入
// ════════════════════════════════════════════════════════════
//
// 格式（首行为表头）：roll_no | name | cgpa | department | semester
// 逐行校验，坏行跳过并记录原因，不中断整体导入

func (s *studentService) ImportRoster(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportStudentsResponse, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, ErrImportInvalidFile
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ErrImportInvalidFile
	}
	if len(rows) <= 1 {
		return nil, ErrImportEmptyFile
	}

	result := &dto.ImportStudentsResponse{}
	var students []model.Student
	seenRollNo := make(map[string]bool)

	for i, row := range rows[1:] {
		rowNum := i + 2 // 表头占第 1 行

		if len(row) < 5 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 列数不足", rowNum))
			continue
		}

		rollNo := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		if rollNo == "" || name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 学号或姓名为空", rowNum))
			continue
		}
		if seenRollNo[rollNo] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 学号 %s 在文件内重复", rowNum, rollNo))
			continue
		}

		cgpa, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil || cgpa < 0 || cgpa > 10 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: CGPA 无效 (%s)", rowNum, row[2]))
			continue
		}

		department := strings.TrimSpace(row[3])
		semester, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil || department == "" || semester < 1 || semester > 10 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 院系或学期无效", rowNum))
			continue
		}

		// 已存在的学号跳过（导入不做覆盖更新）
		if _, err := s.repo.Student.GetByRollNo(ctx, rollNo); err == nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 学号 %s 已存在", rowNum, rollNo))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		seenRollNo[rollNo] = true
		student := model.Student{
			RollNo:     rollNo,
			Name:       name,
			CGPA:       cgpa,
			Department: department,
			Semester:   semester,
		}
		student.CreatedBy = &callerID
		student.UpdatedBy = &callerID
		students = append(students, student)
	}

	if err := s.repo.Student.BatchCreate(ctx, students); err != nil {
		s.logger.Error("批量导入学生失败", zap.Error(err))
		return nil, err
	}
	result.Imported = len(students)

	s.logger.Info("学生名册导入完成",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

func toStudentResponse(st *model.Student) dto.StudentResponse {
	return dto.StudentResponse{
		ID:         st.StudentID,
		RollNo:     st.RollNo,
		Name:       st.Name,
		CGPA:       st.CGPA,
		Department: st.Department,
		Semester:   st.Semester,
		CreatedAt:  st.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  st.UpdatedAt.Format(time.RFC3339),
	}
}
