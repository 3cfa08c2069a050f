//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/database"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/redis"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var (
	testDB  *gorm.DB
	testRDB *redis.Client
)

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=guidance password=guidance_password dbname=guidance_test sslmode=disable TimeZone=UTC"
	}
	redisAddr := os.Getenv("TEST_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试 Redis: %v\n", err)
		os.Exit(1)
	}
	testRDB = redis.Wrap(rdb, fmt.Sprintf("itest-%d", time.Now().UnixNano()), zap.NewNop())

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建两名顾问与一名学生，返回清理函数
func setupTestData(t *testing.T) (owner, other *model.Counselor, student *model.Student, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	owner = &model.Counselor{
		Name:         fmt.Sprintf("顾问A-%d", suffix),
		Email:        fmt.Sprintf("a%d@school.test", suffix),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleCounselor,
	}
	other = &model.Counselor{
		Name:         fmt.Sprintf("顾问B-%d", suffix),
		Email:        fmt.Sprintf("b%d@school.test", suffix),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleCounselor,
	}
	for _, c := range []*model.Counselor{owner, other} {
		if err := testDB.WithContext(ctx).Create(c).Error; err != nil {
			t.Fatalf("创建顾问失败: %v", err)
		}
	}

	student = &model.Student{
		CounselorID: owner.CounselorID,
		Name:        fmt.Sprintf("Ana Lopez %d", suffix),
	}
	if err := testDB.WithContext(ctx).Create(student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("student_id = ?", student.StudentID).Delete(&model.ApplicationProgress{})
		testDB.Unscoped().Where("student_id = ?", student.StudentID).Delete(&model.UniversityAssignment{})
		testDB.Unscoped().Where("student_id = ?", student.StudentID).Delete(&model.Student{})
		testDB.Unscoped().Where("counselor_id IN ?", []string{owner.CounselorID, other.CounselorID}).Delete(&model.Counselor{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Assignment
// ═══════════════════════════════════════════════════════════

func TestAssignment_UpsertBatch_Idempotent(t *testing.T) {
	owner, _, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB, testRDB, time.Hour)
	ctx := context.Background()

	choices := []model.UniversityChoice{
		{Name: "Stanford University", Tier: model.TierReach},
		{Name: "UC Davis", Tier: model.TierMid},
	}
	for i := 0; i < 2; i++ {
		if err := repo.Assignment.UpsertBatch(ctx, student.StudentID, owner.CounselorID, choices); err != nil {
			t.Fatalf("第 %d 次 UpsertBatch 失败: %v", i+1, err)
		}
	}

	list, err := repo.Assignment.ListByStudent(ctx, student.StudentID)
	if err != nil {
		t.Fatalf("ListByStudent 失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("重复写入后期望 2 条志愿，实际 %d", len(list))
	}

	// 大小写不同视为同一所大学，只更新档位；不在新列表中的 Stanford 被移除
	if err := repo.Assignment.UpsertBatch(ctx, student.StudentID, owner.CounselorID, []model.UniversityChoice{
		{Name: "uc davis", Tier: model.TierSafety},
	}); err != nil {
		t.Fatalf("UpsertBatch 失败: %v", err)
	}

	list, err = repo.Assignment.ListByStudent(ctx, student.StudentID)
	if err != nil {
		t.Fatalf("ListByStudent 失败: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("期望仅剩 1 条志愿，实际 %d", len(list))
	}
	if list[0].UniversityName != "UC Davis" || list[0].Tier != model.TierSafety {
		t.Errorf("期望 UC Davis / safety，实际 %s / %s", list[0].UniversityName, list[0].Tier)
	}
}

func TestAssignment_Delete_ScopedAndCascade(t *testing.T) {
	owner, other, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB, testRDB, time.Hour)
	ctx := context.Background()

	if err := repo.Assignment.UpsertBatch(ctx, student.StudentID, owner.CounselorID, []model.UniversityChoice{
		{Name: "MIT", Tier: model.TierReach},
		{Name: "Boston University", Tier: model.TierMid},
	}); err != nil {
		t.Fatalf("UpsertBatch 失败: %v", err)
	}
	list, _ := repo.Assignment.ListByStudent(ctx, student.StudentID)

	for _, a := range list {
		p := &model.ApplicationProgress{
			AssignmentID: a.AssignmentID,
			StudentID:    student.StudentID,
			CounselorID:  owner.CounselorID,
			Status:       model.StatusInProgress,
			EssayStatus:  model.EssayDraft,
		}
		if err := repo.Progress.Create(ctx, p); err != nil {
			t.Fatalf("创建进度失败: %v", err)
		}
	}

	// 其他顾问无法删除
	err := repo.Assignment.Delete(ctx, list[0].AssignmentID, other.CounselorID, true)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}

	// 不级联：进度保留
	if err := repo.Assignment.Delete(ctx, list[0].AssignmentID, owner.CounselorID, false); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.Progress.GetByAssignment(ctx, list[0].AssignmentID); err != nil {
		t.Errorf("不级联时进度应保留: %v", err)
	}

	// 级联：进度一并删除
	if err := repo.Assignment.Delete(ctx, list[1].AssignmentID, owner.CounselorID, true); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.Progress.GetByAssignment(ctx, list[1].AssignmentID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("级联删除后进度应不存在，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Progress
// ═══════════════════════════════════════════════════════════

func TestProgress_UpdateFields_OwnershipIsolation(t *testing.T) {
	owner, other, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB, testRDB, time.Hour)
	ctx := context.Background()

	if err := repo.Assignment.UpsertBatch(ctx, student.StudentID, owner.CounselorID, []model.UniversityChoice{
		{Name: "Yale University", Tier: model.TierReach},
	}); err != nil {
		t.Fatalf("UpsertBatch 失败: %v", err)
	}
	list, _ := repo.Assignment.ListByStudent(ctx, student.StudentID)

	p := &model.ApplicationProgress{
		AssignmentID: list[0].AssignmentID,
		StudentID:    student.StudentID,
		CounselorID:  owner.CounselorID,
		Status:       model.StatusNotStarted,
		EssayStatus:  model.EssayNotStarted,
		Notes:        "原始备注",
	}
	if err := repo.Progress.Create(ctx, p); err != nil {
		t.Fatalf("创建进度失败: %v", err)
	}

	err := repo.Progress.UpdateFields(ctx, p.ProgressID, other.CounselorID, map[string]interface{}{
		"status": model.StatusSubmitted,
		"notes":  "越权修改",
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}

	found, err := repo.Progress.GetByID(ctx, p.ProgressID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if found.Status != model.StatusNotStarted || found.Notes != "原始备注" {
		t.Errorf("越权更新后记录不应变化: status=%s notes=%s", found.Status, found.Notes)
	}
}

// ═══════════════════════════════════════════════════════════
// PoolStore (Redis)
// ═══════════════════════════════════════════════════════════

func TestPoolStore_CaseloadKeepsInsertionOrder(t *testing.T) {
	store := repository.NewPoolStore(testRDB, time.Hour)
	ctx := context.Background()

	if err := store.AddToCaseload(ctx, "Ms. Rivera", "Zoe", "Adam", "Mia"); err != nil {
		t.Fatalf("AddToCaseload 失败: %v", err)
	}
	if err := store.AddToCaseload(ctx, "Ms. Rivera", "Adam", "Ben"); err != nil {
		t.Fatalf("AddToCaseload 失败: %v", err)
	}

	names, err := store.GetCaseload(ctx, "Ms. Rivera")
	if err != nil {
		t.Fatalf("GetCaseload 失败: %v", err)
	}
	want := []string{"Zoe", "Adam", "Mia", "Ben"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("期望 %v，实际 %v", want, names)
	}

	empty, err := store.GetCaseload(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Errorf("不存在的名册应返回空: %v %v", empty, err)
	}
}

func TestPoolStore_MarkAssignedIsPartial(t *testing.T) {
	store := repository.NewPoolStore(testRDB, time.Hour)
	ctx := context.Background()

	if err := store.SetPoolAttributes(ctx, "Ana", model.PoolAttributes{
		Description:     "robotics captain",
		EssayAverage:    92,
		CareerInterests: map[string]bool{"engineering": true, "law": false},
	}); err != nil {
		t.Fatalf("SetPoolAttributes 失败: %v", err)
	}
	if err := store.MarkAssigned(ctx, "Ana"); err != nil {
		t.Fatalf("MarkAssigned 失败: %v", err)
	}

	attrs, err := store.GetPoolAttributes(ctx, "Ana")
	if err != nil {
		t.Fatalf("GetPoolAttributes 失败: %v", err)
	}
	if !attrs.IsAssigned || attrs.Description != "robotics captain" || attrs.EssayAverage != 92 {
		t.Errorf("局部更新不应影响其他字段: %+v", attrs)
	}

	// 重新写入池属性不得清除分配标记
	if err := store.SetPoolAttributes(ctx, "Ana", model.PoolAttributes{Description: "debate", EssayAverage: 95}); err != nil {
		t.Fatalf("SetPoolAttributes 失败: %v", err)
	}
	attrs, err = store.GetPoolAttributes(ctx, "Ana")
	if err != nil {
		t.Fatalf("GetPoolAttributes 失败: %v", err)
	}
	if !attrs.IsAssigned || attrs.Description != "debate" || attrs.EssayAverage != 95 {
		t.Errorf("期望保留 isAssigned 并更新其他字段: %+v", attrs)
	}

	if _, err := store.GetPoolAttributes(ctx, "ghost"); !errors.Is(err, repository.ErrDocumentNotFound) {
		t.Errorf("期望 ErrDocumentNotFound，实际: %v", err)
	}
}

func TestPoolStore_ReplaceAssignmentsIsFullReplace(t *testing.T) {
	store := repository.NewPoolStore(testRDB, time.Hour)
	ctx := context.Background()

	_ = store.ReplaceAssignments(ctx, "Ana", map[string]string{"MIT": "Reach", "UCLA": "Mid"})
	if err := store.ReplaceAssignments(ctx, "Ana", map[string]string{"UC Davis": "Safety"}); err != nil {
		t.Fatalf("ReplaceAssignments 失败: %v", err)
	}

	got, err := store.GetAssignments(ctx, "Ana")
	if err != nil {
		t.Fatalf("GetAssignments 失败: %v", err)
	}
	if len(got) != 1 || got["UC Davis"] != "Safety" {
		t.Errorf("期望仅保留 UC Davis，实际 %v", got)
	}
}

func TestPoolStore_StrengthCache(t *testing.T) {
	store := repository.NewPoolStore(testRDB, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.GetStrength(ctx, "nobody"); err != nil || ok {
		t.Errorf("缺失缓存应返回 ok=false: ok=%v err=%v", ok, err)
	}
	want := model.CachedStrength{Value: 79.1, Weights: "40/50/10"}
	if err := store.SetStrength(ctx, "Ana", want); err != nil {
		t.Fatalf("SetStrength 失败: %v", err)
	}
	got, ok, err := store.GetStrength(ctx, "Ana")
	if err != nil || !ok || got != want {
		t.Errorf("期望 %+v，实际 %+v ok=%v err=%v", want, got, ok, err)
	}

	if err := store.DeleteStrength(ctx, "Ana"); err != nil {
		t.Fatalf("DeleteStrength 失败: %v", err)
	}
	if _, ok, err := store.GetStrength(ctx, "Ana"); err != nil || ok {
		t.Errorf("删除后应返回 ok=false: ok=%v err=%v", ok, err)
	}
}
