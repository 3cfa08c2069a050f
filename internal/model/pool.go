package model

import (
	"fmt"
	"sort"
	"strings"
)

// ── Redis 文档层模型（以顾问显示名 / 学生姓名为键） ──

// WeightingConfig 顾问的综合分权重与分档区间，对应文档 weighting:{counselor}
// 三项权重之和应为 100，该约束只在编辑入口校验，存储层不做限制
type WeightingConfig struct {
	EssayWeight          int `json:"essayWeight"`
	CurrentAverageWeight int `json:"currentAverageWeight"`
	PastAverageWeight    int `json:"pastAverageWeight"`
	ExcellentMin         int `json:"excellentMin"`
	ExcellentMax         int `json:"excellentMax"`
	StrongMin            int `json:"strongMin"`
	StrongMax            int `json:"strongMax"`
	CompetitiveMin       int `json:"competitiveMin"`
	CompetitiveMax       int `json:"competitiveMax"`
	DevelopingMin        int `json:"developingMin"`
	DevelopingMax        int `json:"developingMax"`
}

// DefaultWeightingConfig 顾问首次使用时的默认配置：40/50/10，90-100 / 80-89 / 70-79 / 0-69
func DefaultWeightingConfig() WeightingConfig {
	return WeightingConfig{
		EssayWeight:          40,
		CurrentAverageWeight: 50,
		PastAverageWeight:    10,
		ExcellentMin:         90,
		ExcellentMax:         100,
		StrongMin:            80,
		StrongMax:            89,
		CompetitiveMin:       70,
		CompetitiveMax:       79,
		DevelopingMin:        0,
		DevelopingMax:        69,
	}
}

// WeightTotal 三项权重之和
func (w WeightingConfig) WeightTotal() int {
	return w.EssayWeight + w.CurrentAverageWeight + w.PastAverageWeight
}

// WeightsKey 三项权重的指纹，综合分缓存据此判断是否仍然有效
func (w WeightingConfig) WeightsKey() string {
	return fmt.Sprintf("%d/%d/%d", w.EssayWeight, w.CurrentAverageWeight, w.PastAverageWeight)
}

// CachedStrength 综合分缓存条目，对应 strength:{student}
type CachedStrength struct {
	Value   float64 `json:"value"`
	Weights string  `json:"weights"`
}

// PoolAttributes 学生池属性，对应 Hash pool:{student}
type PoolAttributes struct {
	Description     string
	EssayAverage    float64
	CareerInterests map[string]bool
	IsAssigned      bool
}

// Interests 返回标记为 true 的职业兴趣，按名称排序
func (p PoolAttributes) Interests() []string {
	out := make([]string, 0, len(p.CareerInterests))
	for name, on := range p.CareerInterests {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AcademicAttributes 学业成绩，对应 Hash academic:{student}
type AcademicAttributes struct {
	OverallAverage     float64
	PastOverallAverage float64
}

// StrengthLabel 综合分档位标签（excellent 与 strong 两个区间都归为 Strong）
type StrengthLabel string

const (
	StrengthStrong      StrengthLabel = "Strong"
	StrengthCompetitive StrengthLabel = "Competitive"
	StrengthDeveloping  StrengthLabel = "Developing"
)

// PoolStudent 聚合后的学生池视图
type PoolStudent struct {
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	CareerInterests     []string      `json:"career_interests"`
	EssayActivities     float64       `json:"essay_activities"`
	AcademicPerformance float64       `json:"academic_performance"`
	AcademicTrend       float64       `json:"academic_trend"`
	CompositeStrength   float64       `json:"composite_strength"`
	StrengthLabel       StrengthLabel `json:"strength_label"`
	IsAssigned          bool          `json:"is_assigned"`
}

// ── 志愿档位 ──

// Tier 志愿档位：冲刺 / 稳妥 / 保底
type Tier string

const (
	TierReach  Tier = "reach"
	TierMid    Tier = "mid"
	TierSafety Tier = "safety"
)

// Valid 是否为合法档位
func (t Tier) Valid() bool {
	switch t {
	case TierReach, TierMid, TierSafety:
		return true
	}
	return false
}

// Label 文档层使用的首字母大写标签：reach → Reach
func (t Tier) Label() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UniversityChoice 顾问为学生选定的一所大学及其档位
type UniversityChoice struct {
	Name string
	Tier Tier
}
