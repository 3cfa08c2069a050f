package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
)

const appName = "guidance-portal"

// NewLogger 根据配置初始化 Zap 日志实例
// format=console 时使用开发模式彩色输出，其余情况输出 JSON；
// output 为空时写 stdout，内部错误始终写 stderr
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	zapCfg := baseConfig(cfg.Format)
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{outputPath(cfg.Output)}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build(zap.Fields(zap.String("app", appName)))
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败（output=%s）: %w", outputPath(cfg.Output), err)
	}
	return logger, nil
}

func baseConfig(format string) zap.Config {
	if format == "console" {
		c := zap.NewDevelopmentConfig()
		c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return c
	}
	c := zap.NewProductionConfig()
	c.EncoderConfig.TimeKey = "ts"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// 聚合时每个学生一条 Debug 日志，关闭采样避免丢失
	c.Sampling = nil
	return c
}

func outputPath(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}
