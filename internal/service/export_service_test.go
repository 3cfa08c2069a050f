package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportPool_SortedByCompositeDesc(t *testing.T) {
	tr := newTestRepos()
	tr.pool.seed("Ms. Rivera", "Mia", 70, 70, 70, false)
	tr.pool.seed("Ms. Rivera", "Zoe", 90, 90, 90, true)
	tr.pool.seed("Ms. Rivera", "Adam", 80, 80, 80, false)
	svc := NewExportService(newTestPoolService(tr), zap.NewNop())

	buf, filename, err := svc.ExportPool(context.Background(), "Ms. Rivera")
	if err != nil {
		t.Fatalf("ExportPool 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") || !strings.Contains(filename, "Ms. Rivera") {
		t.Errorf("文件名不符合预期: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法解析生成的 Excel: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("学生池")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("期望 1 行表头 + 3 行数据，实际 %d 行", len(rows))
	}
	got := []string{rows[1][0], rows[2][0], rows[3][0]}
	want := []string{"Zoe", "Adam", "Mia"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第 %d 行期望 %s，实际 %s", i+1, want[i], got[i])
		}
	}
	if rows[1][7] != "是" {
		t.Errorf("Zoe 应标记为已分配，实际 %s", rows[1][7])
	}

	summary, err := f.GetRows("汇总")
	if err != nil {
		t.Fatalf("读取汇总 Sheet 失败: %v", err)
	}
	if summary[0][1] != "3" {
		t.Errorf("名册人数应为 3，实际 %s", summary[0][1])
	}
}

func TestExportPool_Empty(t *testing.T) {
	tr := newTestRepos()
	svc := NewExportService(newTestPoolService(tr), zap.NewNop())

	_, _, err := svc.ExportPool(context.Background(), "nobody")
	if !errors.Is(err, ErrExportEmptyPool) {
		t.Errorf("期望 ErrExportEmptyPool，实际: %v", err)
	}
}
