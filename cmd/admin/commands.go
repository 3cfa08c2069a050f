package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/database"
)

var readPasswordFunc = term.ReadPassword // 测试中替换

// ── migrate ──

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行内嵌的数据库迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openDB(opts)
			if err != nil {
				return err
			}
			defer a.close()

			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(sqlDB, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
			return nil
		},
	}
}

// ── add-counselor ──

func newAddCounselorCmd(opts *rootOptions) *cobra.Command {
	req := &dto.CreateCounselorRequest{}
	cmd := &cobra.Command{
		Use:   "add-counselor",
		Short: "创建顾问账号，密码从终端读取",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd.OutOrStdout(), int(syscall.Stdin))
			if err != nil {
				return err
			}
			req.Password = pwd
			if err := newValidator().Struct(req); err != nil {
				return fmt.Errorf("参数校验失败: %s", dto.ValidationDetails(err))
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.svc.Auth.CreateCounselor(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已创建顾问 %s (%s)，id=%s\n", resp.Name, resp.Role, resp.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "顾问显示名（学生池文档的键）")
	cmd.Flags().StringVar(&req.Email, "email", "", "登录邮箱")
	cmd.Flags().StringVar(&req.Role, "role", model.RoleCounselor, "角色：counselor | admin")
	cmd.Flags().IntVar(&req.UniversityLimit, "limit", 0, "每个学生须选择的大学数量，0 表示不限")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// promptPassword 读取两次密码并确认一致
func promptPassword(out io.Writer, fd int) (string, error) {
	fmt.Fprint(out, "输入密码: ")
	first, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "再次输入: ")
	second, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", fmt.Errorf("密码不能为空")
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("两次输入的密码不一致")
	}
	return string(first), nil
}

// ── seed ──

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var counselorName string
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "从 JSON 文件导入学生池数据",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			reqs, err := parseSeedFile(f, counselorName)
			if err != nil {
				return err
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			for i := range reqs {
				if err := a.svc.Pool.SeedStudent(cmd.Context(), &reqs[i]); err != nil {
					return fmt.Errorf("导入第 %d 条（%s）失败: %w", i+1, reqs[i].Name, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导入 %d 名学生\n", len(reqs))
			return nil
		},
	}
	cmd.Flags().StringVar(&counselorName, "counselor", "", "未指定 counselor_name 的记录归入该顾问")
	return cmd
}

// parseSeedFile 解析 JSON 数组并逐条校验，任一条不合法则整体拒绝
func parseSeedFile(r io.Reader, defaultCounselor string) ([]dto.SeedPoolStudentRequest, error) {
	var reqs []dto.SeedPoolStudentRequest
	if err := json.NewDecoder(r).Decode(&reqs); err != nil {
		return nil, fmt.Errorf("解析导入文件失败: %w", err)
	}

	v := newValidator()
	for i := range reqs {
		if strings.TrimSpace(reqs[i].CounselorName) == "" {
			reqs[i].CounselorName = defaultCounselor
		}
		if err := v.Struct(&reqs[i]); err != nil {
			return nil, fmt.Errorf("第 %d 条记录不合法: %s", i+1, dto.ValidationDetails(err))
		}
	}
	return reqs, nil
}

// ── recompute ──

func newRecomputeCmd(opts *rootOptions) *cobra.Command {
	var counselorName string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "重算顾问名册中所有学生的综合分并刷新缓存",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.svc.Pool.GetCounselorPoolData(cmd.Context(), counselorName)
			if err != nil {
				return err
			}
			printPoolSummary(cmd.OutOrStdout(), data)
			return nil
		},
	}
	cmd.Flags().StringVar(&counselorName, "counselor", "", "顾问显示名")
	_ = cmd.MarkFlagRequired("counselor")
	return cmd
}

func printPoolSummary(out io.Writer, data *dto.PoolDataResponse) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "学生\t综合分\t等级\t状态")
	for _, s := range data.ActiveStudents {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t待分配\n", s.Name, s.CompositeStrength, s.StrengthLabel)
	}
	for _, s := range data.AssignedStudents {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t已分配\n", s.Name, s.CompositeStrength, s.StrengthLabel)
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\n名册 %d 人，待分配 %d 人，已分配 %d 人，平均综合分 %.1f，进度 %.1f%%\n",
		data.TotalCaseload, data.TotalActivePool, data.TotalAssigned, data.AverageStrength, data.Progress)
}

// ── export ──

func newExportCmd(opts *rootOptions) *cobra.Command {
	var counselorName, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出顾问的学生池为 Excel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			buf, filename, err := a.svc.Export.ExportPool(cmd.Context(), counselorName)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = filename
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入 %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&counselorName, "counselor", "", "顾问显示名")
	cmd.Flags().StringVar(&outPath, "out", "", "输出文件路径（默认使用生成的文件名）")
	_ = cmd.MarkFlagRequired("counselor")
	return cmd
}

// newValidator 与 HTTP 层使用相同的 binding 标签与自定义规则
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := dto.RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}
