// Command admin 运维命令行：迁移、创建顾问、导入学生池、重算综合分、导出
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "升学指导平台运维工具",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("ADMIT_CONFIG"), "配置文件路径（默认查找 ./config/config.yaml）")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newAddCounselorCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))
	rootCmd.AddCommand(newRecomputeCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))

	return rootCmd
}

type rootOptions struct {
	configPath string
}
