package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KirtanKRP/chrono-campus-app/internal/model"
)

// ── Mock CycleRepository ──

type mockCycleRepo struct {
	cycles map[string]*model.AllocationCycle
}

func newMockCycleRepo() *mockCycleRepo {
	return &mockCycleRepo{cycles: make(map[string]*model.AllocationCycle)}
}

func (m *mockCycleRepo) Create(_ context.Context, cycle *model.AllocationCycle) error {
	if cycle.CycleID == "" {
		cycle.CycleID = fmt.Sprintf("cycle-%s-%d-%s", cycle.Department, cycle.Semester, cycle.Term)
	}
	m.cycles[cycle.CycleID] = cycle
	return nil
}

func (m *mockCycleRepo) GetByID(_ context.Context, id string) (*model.AllocationCycle, error) {
	if c, ok := m.cycles[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCycleRepo) GetByKey(_ context.Context, department string, semester int, term string) (*model.AllocationCycle, error) {
	for _, c := range m.cycles {
		if c.Department == department && c.Semester == semester && c.Term == term {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCycleRepo) List(_ context.Context, offset, limit int) ([]model.AllocationCycle, int64, error) {
	var result []model.AllocationCycle
	for _, c := range m.cycles {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CycleID < result[j].CycleID })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockCycleRepo) Update(_ context.Context, cycle *model.AllocationCycle) error {
	if _, ok := m.cycles[cycle.CycleID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cycle.Version++
	m.cycles[cycle.CycleID] = cycle
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		student.StudentID = "stu-" + student.RollNo
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) BatchCreate(ctx context.Context, students []model.Student) error {
	for i := range students {
		if err := m.Create(ctx, &students[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByRollNo(_ context.Context, rollNo string) (*model.Student, error) {
	for _, s := range m.students {
		if s.RollNo == rollNo {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) List(_ context.Context, department string, semester, offset, limit int) ([]model.Student, int64, error) {
	var result []model.Student
	for _, s := range m.students {
		if department != "" && s.Department != department {
			continue
		}
		if semester > 0 && s.Semester != semester {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RollNo < result[j].RollNo })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockStudentRepo) ListByCohort(_ context.Context, department string, semester int) ([]model.Student, error) {
	var result []model.Student
	for _, s := range m.students {
		if s.Department == department && s.Semester == semester {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	if _, ok := m.students[student.StudentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	student.Version++
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.students, id)
	return nil
}

// ── Mock ElectiveRepository ──

type mockElectiveRepo struct {
	electives map[string]*model.Elective
}

func newMockElectiveRepo() *mockElectiveRepo {
	return &mockElectiveRepo{electives: make(map[string]*model.Elective)}
}

func (m *mockElectiveRepo) Create(_ context.Context, elective *model.Elective) error {
	if elective.ElectiveID == "" {
		elective.ElectiveID = "ele-" + elective.Code
	}
	m.electives[elective.ElectiveID] = elective
	return nil
}

func (m *mockElectiveRepo) GetByID(_ context.Context, id string) (*model.Elective, error) {
	if e, ok := m.electives[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockElectiveRepo) GetByCode(_ context.Context, code string) (*model.Elective, error) {
	for _, e := range m.electives {
		if e.Code == code {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockElectiveRepo) List(_ context.Context, department string, semester, offset, limit int) ([]model.Elective, int64, error) {
	var result []model.Elective
	for _, e := range m.electives {
		if department != "" && e.Department != department {
			continue
		}
		if semester > 0 && e.Semester != semester {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockElectiveRepo) ListByCohort(_ context.Context, department string, semester int) ([]model.Elective, error) {
	var result []model.Elective
	for _, e := range m.electives {
		if e.Department == department && e.Semester == semester && e.IsActive {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ElectiveID < result[j].ElectiveID })
	return result, nil
}

func (m *mockElectiveRepo) Update(_ context.Context, elective *model.Elective) error {
	if _, ok := m.electives[elective.ElectiveID]; !ok {
		return gorm.ErrRecordNotFound
	}
	elective.Version++
	m.electives[elective.ElectiveID] = elective
	return nil
}

func (m *mockElectiveRepo) Delete(_ context.Context, id string) error {
	delete(m.electives, id)
	return nil
}

// ── Mock PreferenceListRepository ──

type mockPreferenceListRepo struct {
	lists map[string]*model.PreferenceList // key: studentID:cycleID
}

func newMockPreferenceListRepo() *mockPreferenceListRepo {
	return &mockPreferenceListRepo{lists: make(map[string]*model.PreferenceList)}
}

func prefKey(studentID, cycleID string) string {
	return studentID + ":" + cycleID
}

func (m *mockPreferenceListRepo) Upsert(_ context.Context, list *model.PreferenceList) error {
	key := prefKey(list.StudentID, list.CycleID)
	if existing, ok := m.lists[key]; ok {
		list.PreferenceListID = existing.PreferenceListID
	} else if list.PreferenceListID == "" {
		list.PreferenceListID = "pref-" + key
	}
	m.lists[key] = list
	return nil
}

func (m *mockPreferenceListRepo) GetByStudentAndCycle(_ context.Context, studentID, cycleID string) (*model.PreferenceList, error) {
	if l, ok := m.lists[prefKey(studentID, cycleID)]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceListRepo) ListByCycle(_ context.Context, cycleID string) ([]model.PreferenceList, error) {
	var result []model.PreferenceList
	for _, l := range m.lists {
		if l.CycleID == cycleID {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

// ── Mock AllocationRunRepository ──

type mockAllocationRunRepo struct {
	runs        map[string]*model.AllocationRun
	assignments *mockAssignmentRepo
	prefs       *mockPreferenceListRepo
	seq         int

	failCommit bool // 注入提交失败
}

func newMockAllocationRunRepo(assignments *mockAssignmentRepo, prefs *mockPreferenceListRepo) *mockAllocationRunRepo {
	return &mockAllocationRunRepo{
		runs:        make(map[string]*model.AllocationRun),
		assignments: assignments,
		prefs:       prefs,
	}
}

func (m *mockAllocationRunRepo) Create(_ context.Context, run *model.AllocationRun) error {
	if run.RunID == "" {
		m.seq++
		run.RunID = fmt.Sprintf("run-%03d", m.seq)
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *mockAllocationRunRepo) GetByID(_ context.Context, id string) (*model.AllocationRun, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAllocationRunRepo) GetLatestCompletedByCycle(_ context.Context, cycleID string) (*model.AllocationRun, error) {
	var latest *model.AllocationRun
	for _, r := range m.runs {
		if r.CycleID != cycleID || r.Status != model.RunStatusCompleted {
			continue
		}
		if latest == nil || r.RunID > latest.RunID {
			latest = r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockAllocationRunRepo) ListByCycle(_ context.Context, cycleID string, offset, limit int) ([]model.AllocationRun, int64, error) {
	var result []model.AllocationRun
	for _, r := range m.runs {
		if r.CycleID == cycleID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RunID > result[j].RunID })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockAllocationRunRepo) MarkRunning(_ context.Context, runID string) error {
	r, ok := m.runs[runID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.Status != model.RunStatusPending {
		return fmt.Errorf("状态跃迁非法: %s → running", r.Status)
	}
	r.Status = model.RunStatusRunning
	return nil
}

func (m *mockAllocationRunRepo) MarkFailed(_ context.Context, runID, errorKind string) error {
	r, ok := m.runs[runID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	r.Status = model.RunStatusFailed
	r.ErrorKind = &errorKind
	r.FinishedAt = &now
	return nil
}

func (m *mockAllocationRunRepo) CommitResults(ctx context.Context, runID string, summary datatypes.JSON, assignments []model.Assignment, consumedListIDs []string) error {
	if m.failCommit {
		return fmt.Errorf("mock: 提交失败")
	}
	r, ok := m.runs[runID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.Status != model.RunStatusRunning {
		return fmt.Errorf("状态跃迁非法: %s → completed", r.Status)
	}
	now := time.Now()
	r.Status = model.RunStatusCompleted
	r.FinishedAt = &now
	r.Summary = summary
	for i := range assignments {
		m.assignments.add(&assignments[i])
	}
	consumed := make(map[string]bool, len(consumedListIDs))
	for _, id := range consumedListIDs {
		consumed[id] = true
	}
	for _, l := range m.prefs.lists {
		if consumed[l.PreferenceListID] {
			t := now
			l.ConsumedAt = &t
		}
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	byRun map[string][]model.Assignment
	seq   int

	// 可选：关联数据源，用于模拟 Preload
	students  *mockStudentRepo
	electives *mockElectiveRepo
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{byRun: make(map[string][]model.Assignment)}
}

func (m *mockAssignmentRepo) preload(a *model.Assignment) {
	if m.students != nil {
		if s, ok := m.students.students[a.StudentID]; ok {
			a.Student = s
		}
	}
	if m.electives != nil && a.ElectiveID != nil {
		if e, ok := m.electives.electives[*a.ElectiveID]; ok {
			a.Elective = e
		}
	}
}

func (m *mockAssignmentRepo) add(a *model.Assignment) {
	if a.AssignmentID == "" {
		m.seq++
		a.AssignmentID = fmt.Sprintf("asg-%04d", m.seq)
	}
	m.byRun[a.RunID] = append(m.byRun[a.RunID], *a)
}

func (m *mockAssignmentRepo) ListByRun(_ context.Context, runID string) ([]model.Assignment, error) {
	result := append([]model.Assignment(nil), m.byRun[runID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	for i := range result {
		m.preload(&result[i])
	}
	return result, nil
}

func (m *mockAssignmentRepo) GetByRunAndStudent(_ context.Context, runID, studentID string) (*model.Assignment, error) {
	for i := range m.byRun[runID] {
		if m.byRun[runID][i].StudentID == studentID {
			a := m.byRun[runID][i]
			m.preload(&a)
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
