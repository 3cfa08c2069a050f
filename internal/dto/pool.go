package dto

import "github.com/kanatwo544/university-guidance-6-sub001/internal/model"

// ── 学生池 / 权重模块 DTO ──

// WeightingRequest 更新权重配置（整体覆盖）
// 三项权重之和必须为 100，各区间 min<=max，由 weights_total 结构校验保证
type WeightingRequest struct {
	EssayWeight          int `json:"essay_weight"           binding:"min=0,max=100"`
	CurrentAverageWeight int `json:"current_average_weight" binding:"min=0,max=100"`
	PastAverageWeight    int `json:"past_average_weight"    binding:"min=0,max=100"`
	ExcellentMin         int `json:"excellent_min"          binding:"min=0,max=100"`
	ExcellentMax         int `json:"excellent_max"          binding:"min=0,max=100"`
	StrongMin            int `json:"strong_min"             binding:"min=0,max=100"`
	StrongMax            int `json:"strong_max"             binding:"min=0,max=100"`
	CompetitiveMin       int `json:"competitive_min"        binding:"min=0,max=100"`
	CompetitiveMax       int `json:"competitive_max"        binding:"min=0,max=100"`
	DevelopingMin        int `json:"developing_min"         binding:"min=0,max=100"`
	DevelopingMax        int `json:"developing_max"         binding:"min=0,max=100"`
}

// ToModel 转换为文档层模型
func (r *WeightingRequest) ToModel() model.WeightingConfig {
	return model.WeightingConfig{
		EssayWeight:          r.EssayWeight,
		CurrentAverageWeight: r.CurrentAverageWeight,
		PastAverageWeight:    r.PastAverageWeight,
		ExcellentMin:         r.ExcellentMin,
		ExcellentMax:         r.ExcellentMax,
		StrongMin:            r.StrongMin,
		StrongMax:            r.StrongMax,
		CompetitiveMin:       r.CompetitiveMin,
		CompetitiveMax:       r.CompetitiveMax,
		DevelopingMin:        r.DevelopingMin,
		DevelopingMax:        r.DevelopingMax,
	}
}

// WeightingResponse 权重配置响应
type WeightingResponse struct {
	EssayWeight          int `json:"essay_weight"`
	CurrentAverageWeight int `json:"current_average_weight"`
	PastAverageWeight    int `json:"past_average_weight"`
	ExcellentMin         int `json:"excellent_min"`
	ExcellentMax         int `json:"excellent_max"`
	StrongMin            int `json:"strong_min"`
	StrongMax            int `json:"strong_max"`
	CompetitiveMin       int `json:"competitive_min"`
	CompetitiveMax       int `json:"competitive_max"`
	DevelopingMin        int `json:"developing_min"`
	DevelopingMax        int `json:"developing_max"`
}

// NewWeightingResponse 由文档层模型构造响应
func NewWeightingResponse(cfg model.WeightingConfig) *WeightingResponse {
	return &WeightingResponse{
		EssayWeight:          cfg.EssayWeight,
		CurrentAverageWeight: cfg.CurrentAverageWeight,
		PastAverageWeight:    cfg.PastAverageWeight,
		ExcellentMin:         cfg.ExcellentMin,
		ExcellentMax:         cfg.ExcellentMax,
		StrongMin:            cfg.StrongMin,
		StrongMax:            cfg.StrongMax,
		CompetitiveMin:       cfg.CompetitiveMin,
		CompetitiveMax:       cfg.CompetitiveMax,
		DevelopingMin:        cfg.DevelopingMin,
		DevelopingMax:        cfg.DevelopingMax,
	}
}

// PoolDataResponse 顾问学生池聚合结果
//
// TotalCaseload 为名册原始人数；缺少池属性或学业成绩的学生被跳过，
// 因此 TotalActivePool + TotalAssigned 可能小于 TotalCaseload。
// Progress 以实际处理的学生数为分母。
type PoolDataResponse struct {
	ActiveStudents  []model.PoolStudent `json:"active_students"`
	TotalActivePool int                 `json:"total_active_pool"`
	TotalAssigned   int                 `json:"total_assigned"`
	TotalCaseload   int                 `json:"total_caseload"`
	AverageStrength float64             `json:"average_strength"`
	Progress        float64             `json:"progress"`

	// AssignedStudents 不对外输出，供导出使用
	AssignedStudents []model.PoolStudent `json:"-"`
}

// StrengthResponse 单个学生的综合分
type StrengthResponse struct {
	Name              string              `json:"name"`
	CompositeStrength float64             `json:"composite_strength"`
	StrengthLabel     model.StrengthLabel `json:"strength_label"`
	Cached            bool                `json:"cached"`
}

// SeedPoolStudentRequest 向顾问名册登记学生（池属性 + 学业成绩）
type SeedPoolStudentRequest struct {
	CounselorName      string          `json:"counselor_name"       binding:"required,max=100"`
	Name               string          `json:"name"                 binding:"required,max=200"`
	Description        string          `json:"description"          binding:"omitempty,max=2000"`
	EssayAverage       float64         `json:"essay_average"        binding:"min=0,max=100"`
	CareerInterests    map[string]bool `json:"career_interests"`
	OverallAverage     float64         `json:"overall_average"      binding:"min=0,max=100"`
	PastOverallAverage float64         `json:"past_overall_average" binding:"min=0,max=100"`
}
