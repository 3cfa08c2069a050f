package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmptyPool    = errors.New("名册中暂无可导出的学生")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出内容基于一次完整的学生池聚合（会刷新综合分缓存）：
//   - Sheet "学生池"：待分配与已分配学生，按综合分降序，同分按姓名
//   - Sheet "汇总"：名册人数、已处理人数、平均综合分、分配进度
type ExportService interface {
	ExportPool(ctx context.Context, counselorName string) (*bytes.Buffer, string, error)
}

type exportService struct {
	pool   PoolService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(pool PoolService, logger *zap.Logger) ExportService {
	return &exportService{pool: pool, logger: logger}
}

var poolSheetHeaders = []string{"姓名", "综合分", "档位", "文书/活动", "当前均分", "历史均分", "职业兴趣", "已分配", "简介"}

func (s *exportService) ExportPool(ctx context.Context, counselorName string) (*bytes.Buffer, string, error) {
	data, err := s.pool.GetCounselorPoolData(ctx, counselorName)
	if err != nil {
		return nil, "", err
	}

	students := sortedForExport(data)
	if len(students) == 0 {
		return nil, "", ErrExportEmptyPool
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "学生池"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", s.generateFail(err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for col, h := range poolSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(poolSheetHeaders), 1)
	f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, st := range students {
		row := i + 2
		values := []interface{}{
			st.Name,
			st.CompositeStrength,
			string(st.StrengthLabel),
			st.EssayActivities,
			st.AcademicPerformance,
			st.AcademicTrend,
			strings.Join(st.CareerInterests, ", "),
			yesNo(st.IsAssigned),
			st.Description,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "H", 12)
	f.SetColWidth(sheetName, "G", "G", 30)
	f.SetColWidth(sheetName, "I", "I", 50)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := s.writeSummary(f, data); err != nil {
		return nil, "", s.generateFail(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", s.generateFail(err)
	}

	filename := fmt.Sprintf("学生池_%s_%s.xlsx", counselorName, time.Now().Format("20060102"))
	return buf, filename, nil
}

func (s *exportService) writeSummary(f *excelize.File, data *dto.PoolDataResponse) error {
	const sheet = "汇总"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"名册人数", data.TotalCaseload},
		{"待分配", data.TotalActivePool},
		{"已分配", data.TotalAssigned},
		{"平均综合分", data.AverageStrength},
		{"分配进度(%)", fmt.Sprintf("%.1f", data.Progress)},
	}
	for i, r := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 16)
}

func (s *exportService) generateFail(err error) error {
	s.logger.Error("生成学生池 Excel 失败", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
}

// sortedForExport 合并待分配与已分配学生，按综合分降序
func sortedForExport(data *dto.PoolDataResponse) []model.PoolStudent {
	all := make([]model.PoolStudent, 0, len(data.ActiveStudents)+len(data.AssignedStudents))
	all = append(all, data.ActiveStudents...)
	all = append(all, data.AssignedStudents...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CompositeStrength != all[j].CompositeStrength {
			return all[i].CompositeStrength > all[j].CompositeStrength
		}
		return all[i].Name < all[j].Name
	})
	return all
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
