package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
)

// ── Mock CounselorRepository ──

type mockCounselorRepo struct {
	counselors map[string]*model.Counselor // key: counselor_id
	createErr  error
}

func newMockCounselorRepo() *mockCounselorRepo {
	return &mockCounselorRepo{counselors: make(map[string]*model.Counselor)}
}

func (m *mockCounselorRepo) Create(_ context.Context, c *model.Counselor) error {
	if m.createErr != nil {
		return m.createErr
	}
	if c.CounselorID == "" {
		c.CounselorID = "counselor-" + c.Name
	}
	c.CreatedAt = time.Now()
	m.counselors[c.CounselorID] = c
	return nil
}

func (m *mockCounselorRepo) GetByID(_ context.Context, id string) (*model.Counselor, error) {
	if c, ok := m.counselors[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCounselorRepo) GetByEmail(_ context.Context, email string) (*model.Counselor, error) {
	for _, c := range m.counselors {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCounselorRepo) GetByName(_ context.Context, name string) (*model.Counselor, error) {
	for _, c := range m.counselors {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students    map[string]*model.Student // key: student_id
	assignments *mockAssignmentRepo
	getErr      error
}

func newMockStudentRepo(assignments *mockAssignmentRepo) *mockStudentRepo {
	return &mockStudentRepo{
		students:    make(map[string]*model.Student),
		assignments: assignments,
	}
}

func (m *mockStudentRepo) Create(_ context.Context, s *model.Student) error {
	if s.StudentID == "" {
		s.StudentID = fmt.Sprintf("student-%d", len(m.students)+1)
	}
	m.students[s.StudentID] = s
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByCounselorAndName(_ context.Context, counselorID, name string) (*model.Student, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, s := range m.students {
		if s.CounselorID == counselorID && s.Name == name {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListAssigned(ctx context.Context, counselorID string, offset, limit int) ([]model.Student, int64, error) {
	var all []model.Student
	for _, s := range m.students {
		if s.CounselorID != counselorID {
			continue
		}
		list, _ := m.assignments.ListByStudent(ctx, s.StudentID)
		if len(list) == 0 {
			continue
		}
		cp := *s
		cp.Assignments = list
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments map[string]*model.UniversityAssignment // key: assignment_id
	progress    *mockProgressRepo
	seq         int
	upsertCalls int
	upsertErr   error
}

func newMockAssignmentRepo(progress *mockProgressRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]*model.UniversityAssignment),
		progress:    progress,
	}
}

func (m *mockAssignmentRepo) add(a *model.UniversityAssignment) *model.UniversityAssignment {
	m.seq++
	if a.AssignmentID == "" {
		a.AssignmentID = fmt.Sprintf("assignment-%d", m.seq)
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Date(2026, 9, 1, 0, 0, m.seq, 0, time.UTC)
	}
	m.assignments[a.AssignmentID] = a
	return a
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.UniversityAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByStudent(_ context.Context, studentID string) ([]model.UniversityAssignment, error) {
	var result []model.UniversityAssignment
	for _, a := range m.assignments {
		if a.StudentID != studentID {
			continue
		}
		cp := *a
		if m.progress != nil {
			if p, err := m.progress.GetByAssignment(context.Background(), a.AssignmentID); err == nil {
				cp.Progress = p
			}
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssignedAt.Before(result[j].AssignedAt) })
	return result, nil
}

func (m *mockAssignmentRepo) UpsertBatch(_ context.Context, studentID, counselorID string, choices []model.UniversityChoice) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for id, a := range m.assignments {
		if a.StudentID != studentID || containsUniversity(choices, a.UniversityName) {
			continue
		}
		delete(m.assignments, id)
		if m.progress != nil {
			for pid, p := range m.progress.records {
				if p.AssignmentID == id {
					delete(m.progress.records, pid)
				}
			}
		}
	}
	for _, ch := range choices {
		var found *model.UniversityAssignment
		for _, a := range m.assignments {
			if a.StudentID == studentID && strings.EqualFold(a.UniversityName, ch.Name) {
				found = a
				break
			}
		}
		if found != nil {
			found.Tier = ch.Tier
			continue
		}
		m.add(&model.UniversityAssignment{
			StudentID:      studentID,
			CounselorID:    counselorID,
			UniversityName: ch.Name,
			Tier:           ch.Tier,
		})
	}
	return nil
}

func containsUniversity(choices []model.UniversityChoice, name string) bool {
	for _, ch := range choices {
		if strings.EqualFold(ch.Name, name) {
			return true
		}
	}
	return false
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id, counselorID string, cascade bool) error {
	a, ok := m.assignments[id]
	if !ok || a.CounselorID != counselorID {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	if cascade && m.progress != nil {
		for pid, p := range m.progress.records {
			if p.AssignmentID == id {
				delete(m.progress.records, pid)
			}
		}
	}
	return nil
}

// ── Mock ProgressRepository ──

type mockProgressRepo struct {
	records map[string]*model.ApplicationProgress // key: progress_id
	seq     int
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{records: make(map[string]*model.ApplicationProgress)}
}

func (m *mockProgressRepo) Create(_ context.Context, p *model.ApplicationProgress) error {
	if p.ProgressID == "" {
		m.seq++
		p.ProgressID = fmt.Sprintf("progress-%d", m.seq)
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	m.records[p.ProgressID] = &cp
	return nil
}

func (m *mockProgressRepo) GetByID(_ context.Context, id string) (*model.ApplicationProgress, error) {
	if p, ok := m.records[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProgressRepo) GetByAssignment(_ context.Context, assignmentID string) (*model.ApplicationProgress, error) {
	for _, p := range m.records {
		if p.AssignmentID == assignmentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// UpdateFields 只覆盖测试会用到的列
func (m *mockProgressRepo) UpdateFields(_ context.Context, id, counselorID string, fields map[string]interface{}) error {
	p, ok := m.records[id]
	if !ok || p.CounselorID != counselorID {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(model.ApplicationStatus)
		case "notes":
			p.Notes = v.(string)
		case "essay_status":
			p.EssayStatus = v.(model.EssayStatus)
		case "recommendation_letters":
			p.RecommendationLetters = v.(int)
		case "recommendation_letters_needed":
			p.RecommendationLettersNeeded = v.(int)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

// ── Mock PoolStore ──
// 聚合时会被多个 goroutine 并发访问

type mockPoolStore struct {
	mu          sync.Mutex
	caseloads   map[string][]string
	pool        map[string]model.PoolAttributes
	academic    map[string]model.AcademicAttributes
	weightings  map[string]model.WeightingConfig
	assignments map[string]map[string]string
	strength    map[string]model.CachedStrength

	// 错误注入
	caseloadErr    error
	poolErr        map[string]error
	academicErr    map[string]error
	weightingErr   error
	setStrengthErr error
	replaceErr     error
	markErr        error

	setWeightingCalls int
	replaceCalls      int
}

func newMockPoolStore() *mockPoolStore {
	return &mockPoolStore{
		caseloads:   make(map[string][]string),
		pool:        make(map[string]model.PoolAttributes),
		academic:    make(map[string]model.AcademicAttributes),
		weightings:  make(map[string]model.WeightingConfig),
		assignments: make(map[string]map[string]string),
		strength:    make(map[string]model.CachedStrength),
		poolErr:     make(map[string]error),
		academicErr: make(map[string]error),
	}
}

func (m *mockPoolStore) GetCaseload(_ context.Context, counselorName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caseloadErr != nil {
		return nil, m.caseloadErr
	}
	return append([]string(nil), m.caseloads[counselorName]...), nil
}

func (m *mockPoolStore) AddToCaseload(_ context.Context, counselorName string, studentNames ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.caseloads[counselorName]
	for _, n := range studentNames {
		dup := false
		for _, e := range existing {
			if e == n {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, n)
		}
	}
	m.caseloads[counselorName] = existing
	return nil
}

func (m *mockPoolStore) GetPoolAttributes(_ context.Context, studentName string) (*model.PoolAttributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.poolErr[studentName]; err != nil {
		return nil, err
	}
	attrs, ok := m.pool[studentName]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return &attrs, nil
}

func (m *mockPoolStore) SetPoolAttributes(_ context.Context, studentName string, attrs model.PoolAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 与 Redis 实现一致：isAssigned 只由 MarkAssigned 修改
	attrs.IsAssigned = m.pool[studentName].IsAssigned
	m.pool[studentName] = attrs
	return nil
}

func (m *mockPoolStore) MarkAssigned(_ context.Context, studentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	attrs := m.pool[studentName]
	attrs.IsAssigned = true
	m.pool[studentName] = attrs
	return nil
}

func (m *mockPoolStore) GetAcademicAttributes(_ context.Context, studentName string) (*model.AcademicAttributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.academicErr[studentName]; err != nil {
		return nil, err
	}
	attrs, ok := m.academic[studentName]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return &attrs, nil
}

func (m *mockPoolStore) SetAcademicAttributes(_ context.Context, studentName string, attrs model.AcademicAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.academic[studentName] = attrs
	return nil
}

func (m *mockPoolStore) GetWeighting(_ context.Context, counselorName string) (*model.WeightingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weightingErr != nil {
		return nil, m.weightingErr
	}
	cfg, ok := m.weightings[counselorName]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return &cfg, nil
}

func (m *mockPoolStore) SetWeighting(_ context.Context, counselorName string, cfg model.WeightingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setWeightingCalls++
	m.weightings[counselorName] = cfg
	return nil
}

func (m *mockPoolStore) ReplaceAssignments(_ context.Context, studentName string, universities map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	cp := make(map[string]string, len(universities))
	for k, v := range universities {
		cp[k] = v
	}
	m.assignments[studentName] = cp
	return nil
}

func (m *mockPoolStore) GetAssignments(_ context.Context, studentName string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[studentName], nil
}

func (m *mockPoolStore) SetStrength(_ context.Context, studentName string, entry model.CachedStrength) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setStrengthErr != nil {
		return m.setStrengthErr
	}
	m.strength[studentName] = entry
	return nil
}

func (m *mockPoolStore) GetStrength(_ context.Context, studentName string) (model.CachedStrength, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strength[studentName]
	return v, ok, nil
}

func (m *mockPoolStore) DeleteStrength(_ context.Context, studentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strength, studentName)
	return nil
}

// seed 登记一个数据完整的学生
func (m *mockPoolStore) seed(counselor, name string, essay, current, past float64, assigned bool) {
	m.caseloads[counselor] = append(m.caseloads[counselor], name)
	m.pool[name] = model.PoolAttributes{
		Description:     name + " 的简介",
		EssayAverage:    essay,
		CareerInterests: map[string]bool{"engineering": true, "medicine": false},
		IsAssigned:      assigned,
	}
	m.academic[name] = model.AcademicAttributes{OverallAverage: current, PastOverallAverage: past}
}

// ── 测试辅助 ──

type testRepos struct {
	repo       *repository.Repository
	counselor  *mockCounselorRepo
	student    *mockStudentRepo
	assignment *mockAssignmentRepo
	progress   *mockProgressRepo
	pool       *mockPoolStore
}

func newTestRepos() *testRepos {
	progress := newMockProgressRepo()
	assignment := newMockAssignmentRepo(progress)
	tr := &testRepos{
		counselor:  newMockCounselorRepo(),
		student:    newMockStudentRepo(assignment),
		assignment: assignment,
		progress:   progress,
		pool:       newMockPoolStore(),
	}
	tr.repo = &repository.Repository{
		Counselor:  tr.counselor,
		Student:    tr.student,
		Assignment: tr.assignment,
		Progress:   tr.progress,
		Pool:       tr.pool,
	}
	return tr
}

func testPoolConfig() *config.PoolConfig {
	return &config.PoolConfig{FetchConcurrency: 4, StrengthTTL: time.Hour}
}

func newTestPoolService(tr *testRepos) PoolService {
	logger := zap.NewNop()
	return NewPoolService(testPoolConfig(), tr.repo, NewWeightingService(tr.repo, logger), logger)
}
