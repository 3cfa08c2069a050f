// Package scoring 实现学生池综合分计算与分档。
//
// 综合分 = 文书活动分 × 文书权重% + 当前均分 × 当前均分权重% + 往期均分 × 往期均分权重%。
// 权重之和不为 100 时结果只是量纲不同，不视为错误；四舍五入由调用方完成。
package scoring

import (
	"math"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// Composite 计算加权综合分
func Composite(essay, currentAvg, pastAvg float64, cfg model.WeightingConfig) float64 {
	return essay*float64(cfg.EssayWeight)/100 +
		currentAvg*float64(cfg.CurrentAverageWeight)/100 +
		pastAvg*float64(cfg.PastAverageWeight)/100
}

// Classify 按 excellent → strong → competitive 的顺序匹配区间（两端闭区间，先命中者生效），
// 均未命中时归为 Developing。区间重叠或留空均不报错。
func Classify(score float64, cfg model.WeightingConfig) model.StrengthLabel {
	switch {
	case inRange(score, cfg.ExcellentMin, cfg.ExcellentMax):
		return model.StrengthStrong
	case inRange(score, cfg.StrongMin, cfg.StrongMax):
		return model.StrengthStrong
	case inRange(score, cfg.CompetitiveMin, cfg.CompetitiveMax):
		return model.StrengthCompetitive
	default:
		return model.StrengthDeveloping
	}
}

// Round1 四舍五入保留一位小数
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Mean 算术平均，空切片返回 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func inRange(score float64, min, max int) bool {
	return score >= float64(min) && score <= float64(max)
}
