package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
)

// setupProgressTest 顾问 A 名下有学生 s-a（两条志愿），顾问 B 名下有学生 s-b
func setupProgressTest(cascade bool) (ProgressService, *testRepos) {
	tr := newTestRepos()
	tr.student.students["s-a"] = &model.Student{StudentID: "s-a", CounselorID: "counselor-a", Name: "Ana"}
	tr.student.students["s-b"] = &model.Student{StudentID: "s-b", CounselorID: "counselor-b", Name: "Ben"}
	tr.assignment.add(&model.UniversityAssignment{AssignmentID: "as-1", StudentID: "s-a", CounselorID: "counselor-a", UniversityName: "MIT", Tier: model.TierReach})
	tr.assignment.add(&model.UniversityAssignment{AssignmentID: "as-2", StudentID: "s-a", CounselorID: "counselor-a", UniversityName: "UC Davis", Tier: model.TierSafety})
	tr.assignment.add(&model.UniversityAssignment{AssignmentID: "as-3", StudentID: "s-b", CounselorID: "counselor-b", UniversityName: "Yale", Tier: model.TierReach})

	svc := NewProgressService(&config.PoolConfig{CascadeProgressDelete: cascade}, tr.repo, zap.NewNop())
	return svc, tr
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// ── Create ──

func TestCreateProgress_Defaults(t *testing.T) {
	svc, _ := setupProgressTest(false)

	resp, err := svc.CreateApplicationProgress(context.Background(), "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{
		ApplicationDeadline:         strPtr("2027-01-01"),
		DocumentsNeeded:             []string{"transcript", "essay"},
		RecommendationLettersNeeded: 2,
	})
	if err != nil {
		t.Fatalf("CreateApplicationProgress 失败: %v", err)
	}
	if resp.Status != string(model.StatusNotStarted) || resp.EssayStatus != string(model.EssayNotStarted) {
		t.Errorf("默认状态应为 not_started，实际 status=%s essay=%s", resp.Status, resp.EssayStatus)
	}
	if resp.ApplicationDeadline == nil || *resp.ApplicationDeadline != "2027-01-01" {
		t.Errorf("截止日期不符合预期: %v", resp.ApplicationDeadline)
	}
	if resp.DocumentsCompleted == nil || len(resp.DocumentsCompleted) != 0 {
		t.Errorf("documents_completed 应为空数组，实际 %v", resp.DocumentsCompleted)
	}
}

func TestCreateProgress_AtMostOnePerAssignment(t *testing.T) {
	svc, _ := setupProgressTest(false)
	ctx := context.Background()

	if _, err := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{}); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	_, err := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{})
	if !errors.Is(err, ErrProgressExists) {
		t.Errorf("期望 ErrProgressExists，实际: %v", err)
	}
}

func TestCreateProgress_OtherCounselorsAssignment(t *testing.T) {
	svc, _ := setupProgressTest(false)

	_, err := svc.CreateApplicationProgress(context.Background(), "as-3", "s-b", "counselor-a", &dto.CreateProgressRequest{})
	if !errors.Is(err, ErrAssignmentForbidden) || !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("期望 ErrAssignmentForbidden，实际: %v", err)
	}
}

func TestCreateProgress_StudentMismatch(t *testing.T) {
	svc, _ := setupProgressTest(false)

	_, err := svc.CreateApplicationProgress(context.Background(), "as-1", "s-b", "counselor-a", &dto.CreateProgressRequest{})
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
}

// ── Update ──

func TestUpdateProgress_PartialAndStampsUpdatedAt(t *testing.T) {
	svc, tr := setupProgressTest(false)
	ctx := context.Background()

	created, err := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{Notes: "first draft"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	before := tr.progress.records[created.ID].UpdatedAt

	resp, err := svc.UpdateApplicationProgress(ctx, created.ID, "counselor-a", &dto.UpdateProgressRequest{
		Status:                strPtr("submitted"),
		RecommendationLetters: intPtr(5), // 允许超过所需数量
	})
	if err != nil {
		t.Fatalf("UpdateApplicationProgress 失败: %v", err)
	}
	if resp.Status != "submitted" || resp.RecommendationLetters != 5 {
		t.Errorf("更新结果不符合预期: %+v", resp)
	}
	if resp.Notes != "first draft" {
		t.Errorf("未提交的字段不应变化，notes=%s", resp.Notes)
	}
	if tr.progress.records[created.ID].UpdatedAt.Before(before) {
		t.Error("updated_at 应被刷新")
	}

	// 状态可以任意回退
	resp, err = svc.UpdateApplicationProgress(ctx, created.ID, "counselor-a", &dto.UpdateProgressRequest{Status: strPtr("not_started")})
	if err != nil || resp.Status != "not_started" {
		t.Errorf("状态回退应被允许: resp=%+v err=%v", resp, err)
	}
}

func TestUpdateProgress_OwnershipIsolation(t *testing.T) {
	svc, tr := setupProgressTest(false)
	ctx := context.Background()

	created, err := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{Notes: "original"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	snapshot := *tr.progress.records[created.ID]

	_, err = svc.UpdateApplicationProgress(ctx, created.ID, "counselor-b", &dto.UpdateProgressRequest{
		Status: strPtr("accepted"),
		Notes:  strPtr("hijacked"),
	})
	if !errors.Is(err, ErrProgressForbidden) {
		t.Errorf("期望 ErrProgressForbidden，实际: %v", err)
	}

	after, _ := tr.progress.GetByID(ctx, created.ID)
	if after.Status != snapshot.Status || after.Notes != snapshot.Notes || !after.UpdatedAt.Equal(snapshot.UpdatedAt) {
		t.Errorf("越权更新后记录应保持不变: before=%+v after=%+v", snapshot, *after)
	}
}

func TestUpdateProgress_NotFound(t *testing.T) {
	svc, _ := setupProgressTest(false)

	_, err := svc.UpdateApplicationProgress(context.Background(), "missing", "counselor-a", &dto.UpdateProgressRequest{})
	if !errors.Is(err, ErrProgressNotFound) || !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("期望 ErrProgressNotFound，实际: %v", err)
	}
}

// ── Details / List ──

func TestStudentDetails_OrderedWithProgress(t *testing.T) {
	svc, _ := setupProgressTest(false)
	ctx := context.Background()

	if _, err := svc.CreateApplicationProgress(ctx, "as-2", "s-a", "counselor-a", &dto.CreateProgressRequest{EssayStatus: "draft"}); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	detail, err := svc.GetAssignedStudentDetails(ctx, "s-a", "counselor-a")
	if err != nil {
		t.Fatalf("GetAssignedStudentDetails 失败: %v", err)
	}
	if len(detail.Assignments) != 2 {
		t.Fatalf("期望 2 条志愿，实际 %d", len(detail.Assignments))
	}
	if detail.Assignments[0].UniversityName != "MIT" || detail.Assignments[1].UniversityName != "UC Davis" {
		t.Errorf("志愿应按分配时间排序: %s, %s", detail.Assignments[0].UniversityName, detail.Assignments[1].UniversityName)
	}
	if detail.Assignments[0].Progress != nil {
		t.Error("MIT 尚无申请进度")
	}
	if p := detail.Assignments[1].Progress; p == nil || p.EssayStatus != "draft" {
		t.Errorf("UC Davis 应附带申请进度，实际 %+v", p)
	}
}

func TestStudentDetails_Ownership(t *testing.T) {
	svc, _ := setupProgressTest(false)
	ctx := context.Background()

	_, err := svc.GetAssignedStudentDetails(ctx, "s-b", "counselor-a")
	if !errors.Is(err, ErrStudentForbidden) {
		t.Errorf("期望 ErrStudentForbidden，实际: %v", err)
	}

	_, err = svc.GetAssignedStudentDetails(ctx, "missing", "counselor-a")
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}

func TestStudentDetails_StoreError(t *testing.T) {
	svc, tr := setupProgressTest(false)
	tr.student.getErr = errors.New("too many connections")

	_, err := svc.GetAssignedStudentDetails(context.Background(), "s-a", "counselor-a")
	if !apperrors.IsTransport(err) {
		t.Errorf("期望 TransportError，实际: %v", err)
	}
}

func TestListAssignedStudents(t *testing.T) {
	svc, _ := setupProgressTest(false)

	list, total, err := svc.ListAssignedStudents(context.Background(), "counselor-a", &dto.PaginationRequest{})
	if err != nil {
		t.Fatalf("ListAssignedStudents 失败: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 名学生，实际 total=%d len=%d", total, len(list))
	}
	if list[0].Name != "Ana" || list[0].AssignmentCount != 2 {
		t.Errorf("列表项不符合预期: %+v", list[0])
	}
}

// ── Remove ──

func TestRemoveAssignment_NoCascadeKeepsProgress(t *testing.T) {
	svc, tr := setupProgressTest(false)
	ctx := context.Background()

	p, _ := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{})
	if err := svc.RemoveUniversityAssignment(ctx, "as-1", "counselor-a"); err != nil {
		t.Fatalf("RemoveUniversityAssignment 失败: %v", err)
	}
	if _, ok := tr.assignment.assignments["as-1"]; ok {
		t.Error("志愿应已删除")
	}
	if _, ok := tr.progress.records[p.ID]; !ok {
		t.Error("未开启级联时申请进度应保留")
	}
}

func TestRemoveAssignment_CascadeDeletesProgress(t *testing.T) {
	svc, tr := setupProgressTest(true)
	ctx := context.Background()

	p, _ := svc.CreateApplicationProgress(ctx, "as-1", "s-a", "counselor-a", &dto.CreateProgressRequest{})
	if err := svc.RemoveUniversityAssignment(ctx, "as-1", "counselor-a"); err != nil {
		t.Fatalf("RemoveUniversityAssignment 失败: %v", err)
	}
	if _, ok := tr.progress.records[p.ID]; ok {
		t.Error("开启级联时申请进度应一并删除")
	}
}

func TestRemoveAssignment_Ownership(t *testing.T) {
	svc, tr := setupProgressTest(false)
	ctx := context.Background()

	err := svc.RemoveUniversityAssignment(ctx, "as-3", "counselor-a")
	if !errors.Is(err, ErrAssignmentForbidden) {
		t.Errorf("期望 ErrAssignmentForbidden，实际: %v", err)
	}
	if _, ok := tr.assignment.assignments["as-3"]; !ok {
		t.Error("其他顾问的志愿不应被删除")
	}

	err = svc.RemoveUniversityAssignment(ctx, "missing", "counselor-a")
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
}
