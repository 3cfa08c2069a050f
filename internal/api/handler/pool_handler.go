package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
)

// PoolHandler 学生池模块 HTTP 处理器
type PoolHandler struct {
	poolSvc      service.PoolService
	weightingSvc service.WeightingService
}

// NewPoolHandler 创建 PoolHandler
func NewPoolHandler(poolSvc service.PoolService, weightingSvc service.WeightingService) *PoolHandler {
	return &PoolHandler{poolSvc: poolSvc, weightingSvc: weightingSvc}
}

// GetPool 当前顾问的学生池：待分配学生及汇总指标
// GET /api/v1/pool
func (h *PoolHandler) GetPool(c *gin.Context) {
	name, ok := MustGetCounselorName(c)
	if !ok {
		return
	}

	data, err := h.poolSvc.GetCounselorPoolData(c.Request.Context(), name)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, data)
}

// GetWeightings 读取权重配置，未配置时返回默认值
// GET /api/v1/pool/weightings
func (h *PoolHandler) GetWeightings(c *gin.Context) {
	name, ok := MustGetCounselorName(c)
	if !ok {
		return
	}

	cfg, err := h.weightingSvc.Get(c.Request.Context(), name)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, dto.NewWeightingResponse(cfg))
}

// UpdateWeightings 整体替换权重配置
// PUT /api/v1/pool/weightings
func (h *PoolHandler) UpdateWeightings(c *gin.Context) {
	name, ok := MustGetCounselorName(c)
	if !ok {
		return
	}

	var req dto.WeightingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 20001, err)
		return
	}

	cfg, err := h.weightingSvc.Update(c.Request.Context(), name, req.ToModel())
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, dto.NewWeightingResponse(cfg))
}

// GetStrength 单个学生的综合分（优先读缓存）
// GET /api/v1/pool/students/:name/strength
func (h *PoolHandler) GetStrength(c *gin.Context) {
	counselorName, ok := MustGetCounselorName(c)
	if !ok {
		return
	}
	studentName := strings.TrimSpace(c.Param("name"))
	if studentName == "" {
		response.BadRequest(c, 20001, "学生姓名不能为空")
		return
	}

	result, err := h.poolSvc.GetStudentStrength(c.Request.Context(), counselorName, studentName)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.OK(c, result)
}

// SeedStudent 管理员登记学生池数据
// POST /api/v1/admin/pool/students
func (h *PoolHandler) SeedStudent(c *gin.Context) {
	var req dto.SeedPoolStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 20001, err)
		return
	}

	if err := h.poolSvc.SeedStudent(c.Request.Context(), &req); err != nil {
		h.handlePoolError(c, err)
		return
	}

	response.Created(c, gin.H{"name": strings.TrimSpace(req.Name), "counselor_name": req.CounselorName})
}

func (h *PoolHandler) handlePoolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotInCaseload):
		response.NotFound(c, 20002, "学生不在当前顾问名册中")
	case errors.Is(err, service.ErrPoolDataIncomplete):
		response.NotFound(c, 20003, "学生缺少池属性或学业成绩")
	case errors.Is(err, service.ErrCounselorNotFound):
		response.NotFound(c, 11003, "顾问不存在")
	default:
		respondCommonError(c, err)
	}
}
